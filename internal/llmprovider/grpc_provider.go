// Package llmprovider implements router.Provider backends: a gRPC-backed
// provider talking to a model sidecar (grounded on pkg/llm/client.go and
// pkg/agent/llm_client.go's LLMClient shape, generalized from a single
// hardcoded Gemini backend to the general pb.LLMProviderService contract),
// and a plain HTTP provider for REST-fronted model APIs.
package llmprovider

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
	pb "github.com/tarsy-labs/agentruntime/proto"
)

// GRPCProvider wraps a connection to an LLMProviderService sidecar.
type GRPCProvider struct {
	id     string
	name   string
	model  string
	local  bool // true if this sidecar is reachable without leaving the local network (spec §4.5 sensitive/requiresLocalOnly)
	conn   *grpc.ClientConn
	client pb.LLMProviderServiceClient
}

// NewGRPCProvider dials addr (insecure transport, matching pkg/llm/client.go's
// grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
// — the sidecar is expected to run as a local/trusted process, same as
// tarsy's LLM sidecar).
func NewGRPCProvider(id, name, addr, model string, local bool) (*GRPCProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to llm provider sidecar %s: %w", id, err)
	}
	return &GRPCProvider{
		id:     id,
		name:   name,
		model:  model,
		local:  local,
		conn:   conn,
		client: pb.NewLLMProviderServiceClient(conn),
	}, nil
}

func (p *GRPCProvider) ID() string   { return p.id }
func (p *GRPCProvider) Name() string { return p.name }

func (p *GRPCProvider) CanHandle(task router.ClassifiedTask) bool {
	if task.RequiresLocalOnly {
		return p.local
	}
	return true
}

func (p *GRPCProvider) EstimateCost(prompt string, maxTokens int) router.CostEstimate {
	// Rough token estimate (~4 chars/token in English); the authoritative
	// cost comes back on CompletionResult.DollarCost after the call, priced
	// by internal/budget's static table.
	estimatedInput := len(prompt) / 4
	return router.CostEstimate{InputTokens: estimatedInput, OutputTokens: maxTokens}
}

func (p *GRPCProvider) Complete(ctx context.Context, systemPrompt string, messages []types.TaggedMessage, opts router.CompleteOptions) (types.CompletionResult, error) {
	req := &pb.CompleteRequest{
		SystemPrompt: systemPrompt,
		Messages:     toPBMessages(messages),
		MaxTokens:    int32(opts.MaxTokens),
		Temperature:  float32(opts.Temperature),
		Model:        p.model,
	}

	start := time.Now()
	resp, err := p.client.Complete(ctx, req)
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("llm provider %s: %w", p.id, err)
	}
	latency := time.Since(start).Milliseconds()

	result := types.CompletionResult{
		Text:         resp.Text,
		Model:        resp.Model,
		ProviderID:   p.id,
		InputTokens:  int(resp.InputTokens),
		OutputTokens: int(resp.OutputTokens),
		LatencyMS:    latency,
		StopReason:   fromPBStopReason(resp.StopReason),
	}
	if resp.HasConfidence {
		c := float64(resp.Confidence)
		result.Confidence = &c
	}
	return result, nil
}

func (p *GRPCProvider) Health(ctx context.Context) router.ProviderHealth {
	resp, err := p.client.Health(ctx, &pb.HealthRequest{})
	if err != nil {
		return router.ProviderHealth{Healthy: false, Message: err.Error()}
	}
	return router.ProviderHealth{Healthy: resp.Healthy, Message: resp.Message}
}

// Close releases the underlying gRPC connection.
func (p *GRPCProvider) Close() error { return p.conn.Close() }

func toPBMessages(messages []types.TaggedMessage) []*pb.Message {
	out := make([]*pb.Message, len(messages))
	for i, m := range messages {
		out[i] = &pb.Message{Role: toPBRole(m.Role), Content: m.Content}
	}
	return out
}

func toPBRole(role types.MessageRole) pb.Role {
	switch role {
	case types.RoleSystem:
		return pb.Role_ROLE_SYSTEM
	case types.RoleAssistant:
		return pb.Role_ROLE_ASSISTANT
	default:
		return pb.Role_ROLE_USER
	}
}

func fromPBStopReason(r pb.StopReason) types.StopReason {
	switch r {
	case pb.StopReason_STOP_REASON_MAX_TOKENS:
		return types.StopMaxTokens
	case pb.StopReason_STOP_REASON_STOP_SEQUENCE:
		return types.StopSequence
	default:
		return types.StopEndTurn
	}
}
