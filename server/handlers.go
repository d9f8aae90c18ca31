package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mostlygeek/action-bus/action"
	"github.com/mostlygeek/action-bus/config"
)

// forwardHandler builds an action handler that POSTs the call payload to
// the configured upstream URL and completes with the decoded response
// body. The request runs off the calling goroutine; failures are logged
// and the action never completes (there is no error channel).
func forwardHandler(name string, cfg config.ActionConfig) action.Handler {
	client := &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}

	return func(done action.Done, payload any) {
		go func() {
			body, err := json.Marshal(payload)
			if err != nil {
				log.Printf("action %s: encoding payload: %v", name, err)
				return
			}

			resp, err := client.Post(cfg.Forward, "application/json", bytes.NewReader(body))
			if err != nil {
				log.Printf("action %s: forward to %s: %v", name, cfg.Forward, err)
				return
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				log.Printf("action %s: reading forward response: %v", name, err)
				return
			}
			if resp.StatusCode != http.StatusOK {
				log.Printf("action %s: forward to %s returned %d", name, cfg.Forward, resp.StatusCode)
				return
			}

			done.Invoke(decodeResult(respBody))
		}()
	}
}

// commandHandler builds an action handler that runs the configured
// command with the call payload on stdin and completes with its stdout.
func commandHandler(name string, cfg config.ActionConfig) (action.Handler, error) {
	args, err := cfg.SanitizedCommand()
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", name, err)
	}
	timeout := time.Duration(cfg.Timeout) * time.Second

	return func(done action.Done, payload any) {
		go func() {
			input, err := json.Marshal(payload)
			if err != nil {
				log.Printf("action %s: encoding payload: %v", name, err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, args[0], args[1:]...)
			cmd.Stdin = bytes.NewReader(input)
			out, err := cmd.Output()
			if err != nil {
				log.Printf("action %s: running %s: %v", name, args[0], err)
				return
			}

			done.Invoke(decodeResult(out))
		}()
	}, nil
}

// decodeResult turns an upstream response into the value handed to
// subscribers: parsed JSON when the body is valid JSON, the trimmed text
// otherwise.
func decodeResult(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if gjson.ValidBytes(trimmed) {
		return gjson.ParseBytes(trimmed).Value()
	}
	return string(trimmed)
}

// encodeResult renders a published result as JSON for the history ring
// and the streaming clients.
func encodeResult(result any) string {
	b, err := json.Marshal(result)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(result))
	}
	return string(b)
}

// extractPayload pulls the dispatch payload out of a request body. A JSON
// object with a "payload" field dispatches that field; any other valid
// JSON dispatches as-is; non-JSON bodies dispatch as text and empty
// bodies as nil.
func extractPayload(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if field := gjson.GetBytes(trimmed, "payload"); field.Exists() {
		return field.Value()
	}
	if gjson.ValidBytes(trimmed) {
		return gjson.ParseBytes(trimmed).Value()
	}
	return string(trimmed)
}
