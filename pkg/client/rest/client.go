package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nsyszr/flowcount/pkg/aggregator"
	"github.com/nsyszr/flowcount/pkg/api/resource"
	"github.com/nsyszr/flowcount/pkg/client"
	"github.com/pkg/errors"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type restClient struct {
	http *resty.Client
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func New(cfg *Config) client.Interface {
	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}

	return &restClient{http: r}
}

func (c *restClient) do(method, path string, body interface{}, out interface{}) error {
	env := &envelope{}
	req := c.http.R().SetResult(env).SetError(env)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", method, path)
	}

	if resp.IsError() || env.Code != http.StatusOK {
		code := env.Code
		if code == 0 {
			code = resp.StatusCode()
		}
		msg := env.Msg
		if msg == "" {
			msg = resp.Status()
		}
		return &client.APIError{Code: code, Msg: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "failed to decode response of %s", path)
		}
	}
	return nil
}

func (c *restClient) Scenes() ([]*resource.SceneResource, error) {
	var out []*resource.SceneResource
	if err := c.do(http.MethodGet, "/scene/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) Traffic(scene string) ([]aggregator.TrafficView, error) {
	var out []aggregator.TrafficView
	if err := c.do(http.MethodGet, "/scene/traffic/"+scene, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) Clean(ip string, port int) error {
	return c.do(http.MethodPost, "/scene/traffic-clean", &resource.TrafficParams{IP: ip, Port: port}, nil)
}

func (c *restClient) CleanAll() ([]*resource.CleanOutcomeResource, error) {
	var out []*resource.CleanOutcomeResource
	if err := c.do(http.MethodPost, "/scene/traffic-clean-all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
