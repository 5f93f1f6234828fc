package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/pkg/policy"
)

const doctorTimeout = 10 * time.Second

type check struct {
	name string
	run  func(ctx context.Context) error
}

// doctor probes each provider with the configured credentials.
type doctor struct {
	cfg    *config.Config
	client policy.HTTPDoer
}

func newDoctor(c *config.Config) *doctor {
	return &doctor{cfg: c, client: policy.NewHTTPClient(doctorTimeout)}
}

func (d *doctor) checks() []check {
	c := d.cfg
	return []check{
		{"Apify", func(ctx context.Context) error {
			return d.get(ctx, c.Apify.BaseURL+"/users/me", "Bearer "+c.Apify.APIToken, http.StatusOK)
		}},
		{"OpenAI", func(ctx context.Context) error {
			return d.get(ctx, strings.TrimRight(c.OpenAI.BaseURL, "/")+"/v1/models", "Bearer "+c.OpenAI.APIKey, http.StatusOK)
		}},
		{"Anthropic", func(ctx context.Context) error {
			if c.LLM.Backend == "bedrock" {
				if c.Bedrock.ModelID == "" {
					return fmt.Errorf("BEDROCK_MODEL_ID not set")
				}
				return nil
			}
			if !strings.HasPrefix(c.Anthropic.APIKey, "sk-") {
				return fmt.Errorf("key format invalid")
			}
			return nil
		}},
		{"Prospeo", func(ctx context.Context) error {
			// The verifier answers 400 for a well-formed request with a valid key.
			u := c.Prospeo.BaseURL + "/email-verifier?" + url.Values{"email": {"test@example.com"}}.Encode()
			return d.getWithHeader(ctx, u, "X-KEY", c.Prospeo.APIKey, http.StatusOK, http.StatusBadRequest)
		}},
		{"Hunter.io", func(ctx context.Context) error {
			u := c.Hunter.BaseURL + "/v2/account?" + url.Values{"api_key": {c.Hunter.APIKey}}.Encode()
			return d.get(ctx, u, "", http.StatusOK)
		}},
		{"Instantly", func(ctx context.Context) error {
			u := c.Instantly.BaseURL + "/campaign/list?" + url.Values{"api_key": {c.Instantly.APIKey}}.Encode()
			return d.get(ctx, u, "", http.StatusOK)
		}},
	}
}

func (d *doctor) get(ctx context.Context, u, auth string, ok ...int) error {
	return d.getWithHeader(ctx, u, "Authorization", auth, ok...)
}

func (d *doctor) getWithHeader(ctx context.Context, u, header, value string, ok ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if value != "" {
		req.Header.Set(header, value)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return policy.WrapTransport("request", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}

// run executes every check and returns the names of the failed ones.
func (d *doctor) run(ctx context.Context) (passed int, failed []string) {
	logger.Info("=== API Health Check ===")
	checks := d.checks()
	for _, c := range checks {
		if err := c.run(ctx); err != nil {
			logger.Error("[FAIL] "+c.name, "error", err)
			failed = append(failed, c.name)
			continue
		}
		logger.Info("[OK] " + c.name)
		passed++
	}
	logger.Info(fmt.Sprintf("=== Results: %d/%d checks passed ===", passed, len(checks)))
	return passed, failed
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate API keys and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, failed := newDoctor(cfg).run(cmd.Context())
			if len(failed) > 0 {
				return fmt.Errorf("failed checks: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
