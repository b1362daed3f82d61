// Package detect turns reconstructed flows into client identifications.
// Scoring is additive: transport characteristics set a base confidence,
// a TLS handshake match and a cleartext HTTP/2 signature each add a capped
// boost on top. A flow with rich transport evidence but no protocol match
// still gets a meaningful score, and no single signal can saturate the
// result on its own.
package detect

import (
	"fmt"

	"github.com/vistone/wireprint"
	"github.com/vistone/wireprint/capture"
	"github.com/vistone/wireprint/h2sig"
)

// Config sets the boost ceilings for the protocol-level signals.
type Config struct {
	HandshakeCap   float64
	CompressionCap float64
}

// DefaultConfig returns the calibrated caps: the handshake match may add
// at most 0.15 and the HTTP/2 signature at most 0.10.
func DefaultConfig() Config {
	return Config{HandshakeCap: 0.15, CompressionCap: 0.10}
}

// TransportScore rates a flow on transport evidence alone: traffic volume,
// a seen connection attempt, window-size consistency, and TTL plausibility.
// The result is clamped to [0, 1].
func TransportScore(f *capture.Flow) float64 {
	score := 0.0

	switch {
	case f.Packets >= 50:
		score += 0.40
	case f.Packets >= 20:
		score += 0.30
	case f.Packets >= 10:
		score += 0.20
	}

	if f.HasSYN {
		score += 0.20
	}

	if len(f.Windows) > 1 && windowVariance(f.Windows) < 10000.0 {
		score += 0.15
	}

	score += ttlScore(avgTTL(f.TTLs))

	return clamp01(score)
}

func windowVariance(windows []uint16) float64 {
	sum := 0.0
	for _, w := range windows {
		sum += float64(w)
	}
	avg := sum / float64(len(windows))

	variance := 0.0
	for _, w := range windows {
		diff := float64(w) - avg
		variance += diff * diff
	}
	return variance / float64(len(windows))
}

func avgTTL(ttls []uint8) uint8 {
	if len(ttls) == 0 {
		return 0
	}
	sum := 0
	for _, t := range ttls {
		sum += int(t)
	}
	return uint8(sum / len(ttls))
}

// ttlScore grades TTL plausibility. The 32..128 range covers the common
// OS defaults minus a normal hop count; lower values indicate heavily
// routed but still real traffic; zero is invalid and scores nothing.
func ttlScore(ttl uint8) float64 {
	switch {
	case ttl >= 32 && ttl <= 128:
		return 0.25
	case ttl >= 8 && ttl < 32:
		return 0.20
	case ttl >= 1 && ttl < 8:
		return 0.10
	case ttl > 128:
		return 0.15
	}
	return 0.0
}

// Aggregate combines the base transport score with the optional protocol
// signals. Each boost is the signal's own confidence scaled by its cap, so
// a perfect handshake match on top of a 0.70 base lands at 0.85, not 1.0.
func Aggregate(transport float64, hs *wireprint.SignatureMatch, comp *h2sig.Result, cfg Config) float64 {
	score := transport
	if hs != nil {
		score += hs.Confidence * cfg.HandshakeCap
	}
	if comp != nil && comp.Label != "" {
		score += comp.Score * cfg.CompressionCap
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MatchResult is the immutable outcome for one flow. Label and Version are
// empty when nothing identified the client; the component scores are kept
// so callers can see what the confidence is made of.
type MatchResult struct {
	Label       string
	Version     string
	Transport   float64
	Handshake   float64
	Compression float64
	Confidence  float64
}

// State is the scoring stage a flow is in. Signals can only be applied in
// order, and a finalized flow never changes again.
type State int

const (
	StateUnclassified State = iota
	StateTransportScored
	StateHandshakeScored
	StateCompressionScored
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnclassified:
		return "unclassified"
	case StateTransportScored:
		return "transport-scored"
	case StateHandshakeScored:
		return "handshake-scored"
	case StateCompressionScored:
		return "compression-scored"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FlowScorer accumulates signals for one flow. Transport evidence always
// comes first; the handshake and compression stages are optional.
type FlowScorer struct {
	cfg   Config
	state State

	transport   float64
	handshake   *wireprint.SignatureMatch
	compression *h2sig.Result
	result      MatchResult
}

// NewFlowScorer starts a scorer in the unclassified state.
func NewFlowScorer(cfg Config) *FlowScorer {
	return &FlowScorer{cfg: cfg}
}

// State reports the current stage.
func (s *FlowScorer) State() State { return s.state }

// ScoreTransport applies the base transport score. Valid only once, as the
// first stage.
func (s *FlowScorer) ScoreTransport(f *capture.Flow) error {
	if s.state != StateUnclassified {
		return fmt.Errorf("cannot score transport in state %s", s.state)
	}
	s.transport = TransportScore(f)
	s.state = StateTransportScored
	return nil
}

// ScoreHandshake applies a TLS signature match on top of the transport
// stage.
func (s *FlowScorer) ScoreHandshake(m wireprint.SignatureMatch) error {
	if s.state != StateTransportScored {
		return fmt.Errorf("cannot score handshake in state %s", s.state)
	}
	s.handshake = &m
	s.state = StateHandshakeScored
	return nil
}

// ScoreCompression applies a cleartext HTTP/2 signature. It may follow
// either the transport or the handshake stage.
func (s *FlowScorer) ScoreCompression(r h2sig.Result) error {
	if s.state != StateTransportScored && s.state != StateHandshakeScored {
		return fmt.Errorf("cannot score compression in state %s", s.state)
	}
	s.compression = &r
	s.state = StateCompressionScored
	return nil
}

// Finalize freezes the scorer and returns the aggregate result. Calling it
// again returns the same result; no signal can be applied afterwards.
func (s *FlowScorer) Finalize() MatchResult {
	if s.state == StateFinalized {
		return s.result
	}

	res := MatchResult{
		Transport:  s.transport,
		Confidence: Aggregate(s.transport, s.handshake, s.compression, s.cfg),
	}
	if s.handshake != nil {
		res.Handshake = s.handshake.Confidence
		res.Label = s.handshake.Family
		res.Version = s.handshake.Version
	}
	if s.compression != nil && s.compression.Label != "" {
		res.Compression = s.compression.Score
		if res.Label == "" {
			res.Label = s.compression.Label
		}
	}

	s.result = res
	s.state = StateFinalized
	return res
}

// Pipeline wires the signature database and the HTTP/2 analyzer into a
// per-flow classifier.
type Pipeline struct {
	db  *wireprint.SignatureDB
	h2  *h2sig.Analyzer
	cfg Config
}

// NewPipeline builds a pipeline. A nil analyzer disables the HTTP/2 stage.
func NewPipeline(db *wireprint.SignatureDB, h2a *h2sig.Analyzer, cfg Config) *Pipeline {
	return &Pipeline{db: db, h2: h2a, cfg: cfg}
}

// AnalyzeFlow classifies one reconstructed flow. It always yields a
// result: flows with no protocol signal still carry their transport score,
// just without a label.
func (p *Pipeline) AnalyzeFlow(f *capture.Flow) MatchResult {
	scorer := NewFlowScorer(p.cfg)
	_ = scorer.ScoreTransport(f)

	if payload, ok := f.ClientHelloPayload(); ok {
		if hello, err := wireprint.ParseClientHello(payload); err == nil {
			fp := wireprint.FingerprintFromClientHello(hello)
			if m, ok := p.db.Match(fp); ok {
				_ = scorer.ScoreHandshake(m)
			}
		}
	}

	if p.h2 != nil {
		if res, ok := p.h2.Analyze(f.ClientPayload()); ok {
			_ = scorer.ScoreCompression(res)
		}
	}

	return scorer.Finalize()
}
