package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidInitData = errors.New("невалидные данные Telegram WebApp")

// WebAppUser is the "user" field of Telegram WebApp init data.
type WebAppUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
}

// ValidateInitData checks the signature of a WebApp initData query string
// against botToken and returns the user it carries. Data older than maxAge
// is rejected; maxAge <= 0 disables the check.
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return WebAppUser{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return WebAppUser{}, fmt.Errorf("%w: нет подписи", ErrInvalidInitData)
	}
	expected := SignInitData(values, botToken)
	if !hmac.Equal([]byte(hash), []byte(expected)) {
		return WebAppUser{}, fmt.Errorf("%w: подпись не совпадает", ErrInvalidInitData)
	}

	if maxAge > 0 {
		ts, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return WebAppUser{}, fmt.Errorf("%w: некорректный auth_date", ErrInvalidInitData)
		}
		if now.Sub(time.Unix(ts, 0)) > maxAge {
			return WebAppUser{}, fmt.Errorf("%w: данные устарели", ErrInvalidInitData)
		}
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return WebAppUser{}, fmt.Errorf("%w: нет пользователя", ErrInvalidInitData)
	}
	return user, nil
}

// SignInitData computes the hash Telegram puts into initData: the sorted
// key=value lines without "hash", signed with HMAC-SHA256 of the bot token
// keyed by "WebAppData".
func SignInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
