// Package receita calls the public minhareceita.org API to fetch
// company-registry data by CNPJ, used to prefill the company form.
package receita

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("receita")

// Client calls the minhareceita.org registry API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a registry client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type registryResponse struct {
	CNPJ                       string `json:"cnpj"`
	RazaoSocial                string `json:"razao_social"`
	NomeFantasia               string `json:"nome_fantasia"`
	Municipio                  string `json:"municipio"`
	UF                         string `json:"uf"`
	DescricaoSituacaoCadastral string `json:"descricao_situacao_cadastral"`
}

// LookupCNPJ fetches the registry record for a CNPJ. The input must
// already be a valid CNPJ; only its digits go on the wire.
func (c *Client) LookupCNPJ(ctx context.Context, cnpj string) (*domain.RegistryCompany, error) {
	ctx, span := tracer.Start(ctx, "Receita.LookupCNPJ")
	defer span.End()

	digits := domain.CNPJDigits(cnpj)
	span.SetAttributes(attribute.String("cnpj", digits))

	var registry registryResponse

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/%s", c.baseURL, digits)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return &domain.ErrUnavailable{Service: "receita", Err: err}
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return &domain.ErrNotFound{Resource: "cnpj", ID: digits}
			case resp.StatusCode != http.StatusOK:
				body, _ := io.ReadAll(resp.Body)
				return &domain.ErrUnavailable{
					Service: "receita",
					Err:     fmt.Errorf("status %d: %s", resp.StatusCode, body),
				}
			}

			return json.NewDecoder(resp.Body).Decode(&registry)
		})
		return nil, innerErr
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &domain.ErrCircuitOpen{Service: "receita"}
		}
		return nil, err
	}

	return &domain.RegistryCompany{
		CNPJ:             domain.FormatCNPJ(registry.CNPJ),
		RazaoSocial:      registry.RazaoSocial,
		NomeFantasia:     registry.NomeFantasia,
		Municipio:        registry.Municipio,
		UF:               registry.UF,
		SituacaoCadastro: registry.DescricaoSituacaoCadastral,
	}, nil
}
