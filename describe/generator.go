package describe

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAI is a Generator backed by the chat completions API.
type OpenAI struct {
	client openai.Client
	cfg    config.DescribeConfig
}

// NewOpenAI creates a generator. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable read by the client.
func NewOpenAI(apiKey string, cfg config.DescribeConfig, opts ...option.RequestOption) *OpenAI {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}
}

// Generate sends prompt as a single user message.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       o.cfg.Model,
		Temperature: openai.Float(o.cfg.Temperature),
		MaxTokens:   openai.Int(o.cfg.MaxTokens),
	})
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// Describer validates a Listing and asks a Generator for its description.
type Describer struct {
	gen      Generator
	validate *validator.Validate
	logger   log.Logger
}

// NewDescriber creates a Describer using gen.
func NewDescriber(gen Generator, logger log.Logger) *Describer {
	if logger == nil {
		logger = log.GetLoggerWithName("describe")
	}
	return &Describer{gen: gen, validate: validator.New(), logger: logger}
}

// Describe returns the generated description for l.
func (d *Describer) Describe(ctx context.Context, l Listing) (string, error) {
	if err := d.validate.Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return "", errors.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' constraint", fe.Value())
		}
		return "", errors.Wrap(err, "validate listing")
	}

	prompt := Prompt(l)
	d.logger.Debug("generating description", "prompt_chars", len(prompt))
	text, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		d.logger.Error("description failed", "error", err)
		return "", err
	}
	return text, nil
}
