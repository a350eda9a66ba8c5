package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
)

type senderFunc func(ctx context.Context, msg mailer.Message) error

func (f senderFunc) Send(ctx context.Context, msg mailer.Message) error { return f(ctx, msg) }

func TestInstrumentMailer(t *testing.T) {
	okBefore := testutil.ToFloat64(MailSends.WithLabelValues("test", "ok"))
	errBefore := testutil.ToFloat64(MailSends.WithLabelValues("test", "error"))

	ok := InstrumentMailer(senderFunc(func(context.Context, mailer.Message) error { return nil }), "test")
	bad := InstrumentMailer(senderFunc(func(context.Context, mailer.Message) error { return errors.New("down") }), "test")

	assert.NoError(t, ok.Send(context.Background(), mailer.Message{}))
	assert.Error(t, bad.Send(context.Background(), mailer.Message{}))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(MailSends.WithLabelValues("test", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(MailSends.WithLabelValues("test", "error")))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "204"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "204")))
}
