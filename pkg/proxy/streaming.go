package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/services"
)

// EmitFunc receives one intermediate stream event from the upstream agent.
// Implementations must not block; the hub's non-blocking fan-out is the
// usual sink.
type EmitFunc func(eventType string, data interface{})

// ExecuteStreaming runs the agent over its streaming transport, forwarding
// intermediate events through emit. The upstream terminal event is not
// emitted: a done payload becomes the returned response (so the caller can
// persist the result before announcing completion) and an upstream error
// becomes the returned error.
//
// Agents that declare no streaming protocol are bridged: the synchronous
// result is replayed as a synthetic start, fixed-size token events, and the
// returned response.
func (p *Proxy) ExecuteStreaming(ctx context.Context, agentID string, request *models.AgentExecuteRequest, emit EmitFunc) (*models.AgentExecuteResponse, error) {
	cfg, err := p.registry.Config(agentID)
	if err != nil {
		return nil, err
	}

	if cfg.Streaming == models.StreamProtocolNone {
		return p.bridgeSync(ctx, agentID, request, emit)
	}

	if err := p.registry.Acquire(agentID); err != nil {
		return nil, err
	}
	defer p.registry.Release(agentID)

	start := time.Now()
	var response *models.AgentExecuteResponse

	switch cfg.Streaming {
	case models.StreamProtocolSSE:
		response, err = p.streamSSE(ctx, &cfg, request, emit)
	case models.StreamProtocolWebSocket:
		response, err = p.streamWebSocket(ctx, &cfg, request, emit)
	case models.StreamProtocolChunked:
		response, err = p.streamChunked(ctx, &cfg, request, emit)
	default:
		return nil, fmt.Errorf("agent '%s' has unsupported streaming protocol '%s'", agentID, cfg.Streaming)
	}

	if err != nil {
		p.registry.RecordFailure(agentID)
		return nil, err
	}
	p.registry.RecordSuccess(agentID, float64(time.Since(start).Milliseconds()))
	return response, nil
}

// bridgeSync adapts a non-streaming agent to a streaming caller.
func (p *Proxy) bridgeSync(ctx context.Context, agentID string, request *models.AgentExecuteRequest, emit EmitFunc) (*models.AgentExecuteResponse, error) {
	response, err := p.Execute(ctx, agentID, request)
	if err != nil {
		return nil, err
	}

	emit(models.EventStart, models.StartPayload{JobID: request.RequestID, AgentID: agentID})

	chunkSize := p.config.StreamChunkSize
	if chunkSize <= 0 {
		chunkSize = 64
	}
	text := textualResult(response.Result)
	for start := 0; start < len(text); start += chunkSize {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		emit(models.EventToken, models.TokenPayload{Text: text[start:end]})
	}
	return response, nil
}

// streamSSE POSTs the stream endpoint and parses SSE frames until the
// upstream finishes.
func (p *Proxy) streamSSE(ctx context.Context, cfg *models.ExternalAgentConfig, request *models.AgentExecuteRequest, emit EmitFunc) (*models.AgentExecuteResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		joinURL(cfg.BaseURL, cfg.Endpoints.Stream), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	applyAuth(req, cfg.Auth)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stream to agent '%s' aborted: %w", cfg.ID, services.ErrTimeout)
		}
		return nil, fmt.Errorf("failed to open stream to agent '%s': %v: %w", cfg.ID, err, services.ErrTimeout)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, services.NewUpstreamError(cfg.ID, resp.StatusCode, string(snippet),
			p.isRetryableStatus(cfg, resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var eventType, eventData string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			eventData = strings.TrimPrefix(line, "data: ")
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case line == "" && (eventType != "" || eventData != ""):
			done, result, err := forwardEvent(cfg.ID, eventType, eventData, emit)
			if err != nil {
				return nil, err
			}
			if done {
				return result, nil
			}
			eventType, eventData = "", ""
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("stream from agent '%s' broke: %w", cfg.ID, err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("stream to agent '%s' aborted: %w", cfg.ID, services.ErrTimeout)
	}
	// Upstream closed without a terminal event.
	return nil, fmt.Errorf("stream from agent '%s' ended without done", cfg.ID)
}

// streamWebSocket dials the agent's stream endpoint over WebSocket, sends
// the request as the first frame, and reads event frames until close.
func (p *Proxy) streamWebSocket(ctx context.Context, cfg *models.ExternalAgentConfig, request *models.AgentExecuteRequest, emit EmitFunc) (*models.AgentExecuteResponse, error) {
	wsURL := toWebSocketURL(joinURL(cfg.BaseURL, cfg.Endpoints.Stream))

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	authReq := &http.Request{Header: opts.HTTPHeader}
	applyAuth(authReq, cfg.Auth)

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to dial agent '%s' stream: %v: %w", cfg.ID, err, services.ErrTimeout)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return nil, fmt.Errorf("failed to send request to agent '%s': %w", cfg.ID, err)
	}

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("stream to agent '%s' aborted: %w", cfg.ID, services.ErrTimeout)
			}
			return nil, fmt.Errorf("stream from agent '%s' closed without done: %w", cfg.ID, err)
		}

		var event models.StreamEvent
		if err := json.Unmarshal(frame, &event); err != nil {
			continue
		}

		done, result, err := dispatchEvent(cfg.ID, event.Type, event.Data, emit)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// streamChunked POSTs the stream endpoint and converts each body chunk into
// a token event, accumulating the full text as the result.
func (p *Proxy) streamChunked(ctx context.Context, cfg *models.ExternalAgentConfig, request *models.AgentExecuteRequest, emit EmitFunc) (*models.AgentExecuteResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		joinURL(cfg.BaseURL, cfg.Endpoints.Stream), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, cfg.Auth)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream to agent '%s': %v: %w", cfg.ID, err, services.ErrTimeout)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, services.NewUpstreamError(cfg.ID, resp.StatusCode, string(snippet),
			p.isRetryableStatus(cfg, resp.StatusCode))
	}

	emit(models.EventStart, models.StartPayload{JobID: request.RequestID, AgentID: cfg.ID})

	var full strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			text := string(buf[:n])
			full.WriteString(text)
			emit(models.EventToken, models.TokenPayload{Text: text})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("stream to agent '%s' aborted: %w", cfg.ID, services.ErrTimeout)
			}
			return nil, fmt.Errorf("stream from agent '%s' broke: %w", cfg.ID, err)
		}
	}

	return &models.AgentExecuteResponse{Result: full.String()}, nil
}

// forwardEvent parses an SSE data payload and dispatches it.
func forwardEvent(agentID, eventType, eventData string, emit EmitFunc) (bool, *models.AgentExecuteResponse, error) {
	var data interface{}
	if eventData != "" {
		// Upstream frames carry the full event envelope; fall back to the
		// raw JSON when the payload is shaped differently.
		var envelope models.StreamEvent
		if err := json.Unmarshal([]byte(eventData), &envelope); err == nil && envelope.Type != "" {
			if eventType == "" {
				eventType = envelope.Type
			}
			data = envelope.Data
		} else if err := json.Unmarshal([]byte(eventData), &data); err != nil {
			data = eventData
		}
	}
	return dispatchEvent(agentID, eventType, data, emit)
}

// dispatchEvent routes one upstream event: terminal events become return
// values, everything else is forwarded.
func dispatchEvent(agentID, eventType string, data interface{}, emit EmitFunc) (bool, *models.AgentExecuteResponse, error) {
	switch eventType {
	case models.EventDone:
		return true, doneResponse(data), nil
	case models.EventError:
		return false, nil, upstreamStreamError(agentID, data)
	case "":
		return false, nil, nil
	default:
		emit(eventType, data)
		return false, nil, nil
	}
}

// doneResponse extracts the final result from a done event payload.
func doneResponse(data interface{}) *models.AgentExecuteResponse {
	response := &models.AgentExecuteResponse{Result: data}
	fields, ok := data.(map[string]interface{})
	if !ok {
		return response
	}

	if output, ok := fields["output"]; ok {
		response.Result = output
	} else if result, ok := fields["result"]; ok {
		response.Result = result
	}

	if rawUsage, ok := fields["usage"]; ok {
		if encoded, err := json.Marshal(rawUsage); err == nil {
			var usage models.UsageInfo
			if err := json.Unmarshal(encoded, &usage); err == nil {
				response.Usage = &usage
			}
		}
	}
	if cost, ok := fields["cost"].(float64); ok {
		if response.Usage == nil {
			response.Usage = &models.UsageInfo{}
		}
		response.Usage.Cost = &cost
	}
	return response
}

// upstreamStreamError converts an upstream error event into an error.
func upstreamStreamError(agentID string, data interface{}) error {
	message := "upstream stream error"
	if fields, ok := data.(map[string]interface{}); ok {
		if m, ok := fields["message"].(string); ok && m != "" {
			message = m
		}
	} else if s, ok := data.(string); ok && s != "" {
		message = s
	}
	return fmt.Errorf("agent '%s' stream failed: %s", agentID, message)
}

// textualResult renders a sync result as text for token chunking.
func textualResult(result interface{}) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// toWebSocketURL rewrites an http(s) URL to its ws(s) equivalent.
func toWebSocketURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	default:
		return url
	}
}
