package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/view"
)

type errorPage struct {
	Code    int
	Message string
}

// ErrorHandler renders echo errors as HTML.  404 gets the not-found page;
// everything else gets a short message, and 5xx errors are logged.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "มีบางอย่างผิดพลาด โปรดลองอีกครั้ง."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok && code < 500 {
				msg = m
			}
		}
		if code >= 500 {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
		}

		var rerr error
		if c.Request().Method == http.MethodHead {
			rerr = c.NoContent(code)
		} else if code == http.StatusNotFound {
			rerr = c.Render(code, "notfound.html", view.Page{Title: "404 - Page Not Found"})
		} else {
			rerr = c.Render(code, "error.html", view.Page{Title: http.StatusText(code), Data: errorPage{Code: code, Message: msg}})
		}
		if rerr != nil {
			log.Error("error page render failed", zap.Error(rerr))
		}
	}
}
