// Package identity works out which client a request belongs to.
package identity

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
)

// Field is the header and cookie name carrying the session token
const Field = "ngapimockid"

// Resolve returns the session token for a request given its ngapimockid header, whether that header
// was sent at all, and the raw cookie header. A sent header wins over the cookie even when empty.
// An empty result means the request is anonymous.
func Resolve(header string, present bool, cookie string) string {
	if present {
		return header
	}

	return fromCookie(cookie)
}

// fromCookie returns the decoded value of the first ngapimockid pair in a cookie header.
func fromCookie(cookie string) string {
	if cookie == "" {
		return ""
	}

	for _, pair := range strings.Split(cookie, ";") {
		parts := strings.Split(pair, "=")
		if strings.TrimSpace(parts[0]) != Field {
			continue
		}

		value := strings.Join(parts[1:], "=")
		if decoded, err := url.PathUnescape(value); err == nil {
			return decoded
		}

		return value
	}

	return ""
}

// Attach resolves the token for c and stamps it on the request for everything downstream.
func Attach(c *fiber.Ctx) string {
	header, present := "", false
	c.Fasthttp.Request.Header.VisitAll(func(key, value []byte) {
		if !present && strings.EqualFold(string(key), Field) {
			header, present = string(value), true
		}
	})

	token := utils.ImmutableString(Resolve(header, present, c.Get("Cookie")))

	c.Locals(Field, token)
	if token != "" {
		c.Fasthttp.Request.Header.Set(Field, token)
	}

	return token
}

// Token returns the token Attach stored on c
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(Field).(string)

	return token
}
