package security

import (
	"github.com/pquerna/otp/totp"
)

// totpIssuer names the service in authenticator apps.
const totpIssuer = "SubTrack"

// GenerateTOTPSecret creates a new TOTP secret and its provisioning URL for
// the given account.
func GenerateTOTPSecret(account string) (secret, url string, err error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account,
	})
	if errGenerate != nil {
		return "", "", errGenerate
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP reports whether the code is valid for the secret right now.
func ValidateTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
