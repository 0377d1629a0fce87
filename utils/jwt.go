package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallbackClaims identify which campaign attempt a voice provider
// callback belongs to.
type CallbackClaims struct {
	CampaignID uint `json:"campaign_id"`
	ContactID  uint `json:"contact_id"`
	LeadID     uint `json:"lead_id"`
	jwt.RegisteredClaims
}

const callbackTokenTTL = 72 * time.Hour

// GenerateCallbackToken signs the token embedded in the voice callback
// URL, so the callback endpoint can authenticate the provider.
func GenerateCallbackToken(campaignID, contactID, leadID uint, secret string) (string, error) {
	claims := CallbackClaims{
		CampaignID: campaignID,
		ContactID:  contactID,
		LeadID:     leadID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(callbackTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseCallbackToken validates a callback token and returns its claims
func ParseCallbackToken(tokenString, secret string) (*CallbackClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallbackClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*CallbackClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid callback token")
	}
	return claims, nil
}
