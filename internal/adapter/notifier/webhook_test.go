package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/custos/internal/config"
)

func TestWebhookNotifier(t *testing.T) {
	Convey("Given a WebhookNotifier", t, func() {
		ctx := context.Background()

		Convey("When the endpoint accepts the payload", func() {
			var received map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&received)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			n := NewWebhook(&config.ChannelConfig{URL: server.URL})
			err := n.Send(ctx, "backup nightly succeeded")

			Convey("It should post the message as JSON", func() {
				So(err, ShouldBeNil)
				So(received["content"], ShouldEqual, "backup nightly succeeded")
				So(received["text"], ShouldEqual, "backup nightly succeeded")
			})
		})

		Convey("When the endpoint rejects the payload", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer server.Close()

			n := NewWebhook(&config.ChannelConfig{URL: server.URL})
			err := n.Send(ctx, "backup nightly failed")

			Convey("It should return an error with the status code", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "403")
			})
		})

		Convey("When the endpoint is unreachable", func() {
			n := NewWebhook(&config.ChannelConfig{URL: "http://127.0.0.1:1"})
			err := n.Send(ctx, "msg")

			Convey("It should return a transport error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
