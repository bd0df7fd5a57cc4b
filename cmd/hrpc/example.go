package main

import (
	"encoding/json"

	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/service"
)

// newEchoService builds the bundled demo service. It exercises the full
// request path: parameter decoding, config access, and domain errors.
func newEchoService() (*service.Service, error) {
	svc := service.New("Echo")

	if err := svc.Register("say", sayHandler); err != nil {
		return nil, err
	}
	if err := svc.Register("config", configHandler); err != nil {
		return nil, err
	}
	return svc, nil
}

type sayParams struct {
	Text string `json:"text"`
}

func sayHandler(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
	var params sayParams
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &params); err != nil {
			return nil, errors.NewInvalidParams("invalid JSON body: %v", err)
		}
	}
	if params.Text == "" {
		return nil, errors.NewInvalidParams("text is required")
	}
	return gateway.OK(map[string]string{"message": params.Text})
}

func configHandler(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
	debug, err := ctx.Require("config.debug")
	if err != nil {
		return nil, err
	}
	prefix, err := ctx.Require("config.url_prefix")
	if err != nil {
		return nil, err
	}
	return gateway.OK(map[string]any{
		"debug":      debug,
		"url_prefix": prefix,
	})
}
