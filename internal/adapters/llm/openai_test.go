package llm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/okian/pulselog/internal/adapters/llm"
	"github.com/okian/pulselog/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760774400,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Sleep averaged 5.1 hours."}}]
}`

func TestOpenAI(t *testing.T) {
	Convey("Given a completer talking to a stub server", t, func() {
		var captured map[string]any
		var path, auth string
		transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			path, auth = req.URL.Path, req.Header.Get("Authorization")
			_ = json.NewDecoder(req.Body).Decode(&captured)
			return jsonResponse(http.StatusOK, completion), nil
		})
		c, err := llm.NewOpenAI("sk-test",
			llm.WithModel("gpt-4o-mini"),
			llm.WithBaseURL("http://upstream/v1/"),
			llm.WithHTTPClient(&http.Client{Transport: transport}),
			llm.WithMaxRetries(0),
		)
		So(err, ShouldBeNil)
		So(c.Model(), ShouldEqual, "gpt-4o-mini")

		Convey("When a completion is requested", func() {
			text, err := c.Complete(context.Background(), summary.Request{
				System: "restate only", User: "facts", Temperature: 0.3, MaxTokens: 200,
			})

			Convey("Then the first choice is returned", func() {
				So(err, ShouldBeNil)
				So(text, ShouldEqual, "Sleep averaged 5.1 hours.")
			})

			Convey("Then the request carries the prompt and settings", func() {
				So(strings.HasSuffix(path, "/chat/completions"), ShouldBeTrue)
				So(auth, ShouldEqual, "Bearer sk-test")
				So(captured["model"], ShouldEqual, "gpt-4o-mini")
				So(captured["temperature"], ShouldEqual, 0.3)
				So(captured["max_tokens"], ShouldEqual, 200)
				msgs, _ := captured["messages"].([]any)
				So(msgs, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given an upstream error", t, func() {
		transport := roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`), nil
		})
		c, err := llm.NewOpenAI("sk-test",
			llm.WithBaseURL("http://upstream/v1/"),
			llm.WithHTTPClient(&http.Client{Transport: transport}),
			llm.WithMaxRetries(0),
		)
		So(err, ShouldBeNil)
		_, err = c.Complete(context.Background(), summary.Request{User: "facts"})
		So(err, ShouldNotBeNil)
	})

	Convey("Given an empty choice list", t, func() {
		transport := roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`), nil
		})
		c, _ := llm.NewOpenAI("sk-test", llm.WithBaseURL("http://upstream/v1/"), llm.WithHTTPClient(&http.Client{Transport: transport}))
		_, err := c.Complete(context.Background(), summary.Request{User: "facts"})
		So(errors.Is(err, llm.ErrNoChoices), ShouldBeTrue)
	})

	Convey("Given no api key", t, func() {
		_, err := llm.NewOpenAI("  ")
		So(err, ShouldNotBeNil)
	})
}
