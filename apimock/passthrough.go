package apimock

import (
	"net"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Passthrough returns a handler forwarding the request as is to backend
func Passthrough(backend *url.URL, logger logrus.FieldLogger) fiber.Handler {
	isTLS := backend.Scheme == "https"

	addr := backend.Host
	if backend.Port() == "" {
		port := "80"
		if isTLS {
			port = "443"
		}
		addr = net.JoinHostPort(backend.Hostname(), port)
	}

	client := &fasthttp.HostClient{Addr: addr, IsTLS: isTLS}

	return func(c *fiber.Ctx) {
		req := &c.Fasthttp.Request
		req.SetHost(backend.Host)
		req.Header.Del("Connection")

		if err := client.Do(req, &c.Fasthttp.Response); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"backend": addr,
				"path":    c.Path(),
			}).Error("failed to forward request")
			c.SendStatus(http.StatusBadGateway)
			return
		}

		c.Fasthttp.Response.Header.Del("Connection")
	}
}
