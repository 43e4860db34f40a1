package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mahirjain10/image-optimizer/config"
	"github.com/mahirjain10/image-optimizer/internal/app"
	"github.com/mahirjain10/image-optimizer/internal/optimizer"
	"github.com/mahirjain10/image-optimizer/internal/queue"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/mahirjain10/image-optimizer/pkg/logger"
	"github.com/rs/zerolog/log"
)

// handler runs one sweep per invocation. The event payload is ignored.
type handler struct {
	sweeper queue.Sweeper
}

func (h *handler) Handle(ctx context.Context, event json.RawMessage) (types.ActivationResponse, error) {
	log.Info().Int("payloadBytes", len(event)).Msg("lambda invoked")

	summary, err := h.sweeper.Sweep(ctx)
	if err != nil {
		if errors.Is(err, optimizer.ErrListing) && summary != nil {
			return types.ActivationResponse{StatusCode: http.StatusBadRequest, Body: summary}, nil
		}
		return types.ActivationResponse{}, err
	}
	return types.ActivationResponse{StatusCode: http.StatusOK, Body: summary}, nil
}

func main() {
	ctx := context.Background()

	envConfig, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(envConfig.LogLevel, envConfig.LogFormat)

	opt, err := app.NewOptimizer(ctx, envConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize optimizer")
	}

	h := &handler{sweeper: opt}
	lambda.Start(h.Handle)
}
