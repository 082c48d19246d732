package analysis

import "context"

const ProviderStatic = "static"

// staticReply is what the static provider answers for every prompt.
const staticReply = `{"severity":"INFO","category":"unclassified","summarizedIssue":"static analysis","likelyCause":"no model configured","recommendation":"configure an AI model","anomalyScore":0.0}`

// StaticProvider returns a canned reply. It is meant for local runs without an
// API key.
type StaticProvider struct {
	reply string
}

func NewStaticProvider(reply string) *StaticProvider {
	if reply == "" {
		reply = staticReply
	}
	return &StaticProvider{reply: reply}
}

func (p *StaticProvider) Name() string { return ProviderStatic }

func (p *StaticProvider) Enabled() bool { return true }

func (p *StaticProvider) Analyze(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.reply, nil
}
