package xbridge

import (
	"net/http"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newHTTP builds the read-only status endpoint.
func (s *Server) newHTTP() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET},
	}))

	e.GET("/health", s.healthHandler(false))
	e.GET("/alive", s.healthHandler(true))
	e.GET("/transactions", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Transactions())
	})
	e.GET("/transactions/:id", s.getTransaction)
	e.GET("/history", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.History())
	})
	e.GET("/currencies", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Currencies())
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func (s *Server) healthHandler(checkLiveness bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, details, err := s.Health(c.Request().Context(), checkLiveness)
		if err != nil {
			s.logger.Errorf("[xbridge][health] %v", err)
		}

		if checkLiveness {
			return c.String(status, details)
		}

		return c.Blob(status, echo.MIMEApplicationJSON, []byte(details))
	}
}

func (s *Server) getTransaction(c echo.Context) error {
	id, err := chainhash.NewHashFromStr(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid swap id")
	}

	info, err := s.Transaction(*id)
	if err != nil {
		if errors.Is(err, errors.ErrTransactionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, info)
}
