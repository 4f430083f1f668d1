package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	deps map[string]Pinger
}

// NewHealthChecker probes Postgres and, when configured, Redis
func NewHealthChecker(infra Infrastructure) *HealthChecker {
	deps := map[string]Pinger{"postgres": infra.Postgres()}
	if infra.Redis() != nil {
		deps["redis"] = infra.Redis()
	}
	return &HealthChecker{deps: deps}
}

func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make(chan error, len(h.deps))
	for name, dep := range h.deps {
		go func() {
			if err := dep.Ping(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			errs <- nil
		}()
	}

	var all []error
	for range h.deps {
		all = append(all, <-errs)
	}
	return errors.Join(all...)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
	})
}
