package service

import (
	"time"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/raw"
)

// PublicPathMessage explains the publicPath invariant violation.
const PublicPathMessage = `Do not modify output.publicPath directly. Use the "baseUrl" option instead.`

// ResolveChainableConfig builds a fresh tree and runs every chain hook on it
// in registration order.
func (s *Service) ResolveChainableConfig(plan buildplan.Plan) (*chain.Config, error) {
	if err := s.requireInit("ResolveChainableConfig"); err != nil {
		return nil, err
	}
	tree := chain.New()
	for _, fn := range s.chainFns {
		fn(tree, plan)
	}
	return tree, nil
}

// ResolveConfig finalizes tree, or a freshly resolved tree when tree is nil,
// then folds the raw hooks over it. A hook returning a patch, and every
// literal hook, is deep-merged on top. For app targets outside test mode
// output.publicPath must equal baseUrl.
func (s *Service) ResolveConfig(plan buildplan.Plan, tree *chain.Config) (*raw.Config, error) {
	if err := s.requireInit("ResolveConfig"); err != nil {
		return nil, err
	}
	start := time.Now()
	if tree == nil {
		var err error
		if tree, err = s.ResolveChainableConfig(plan); err != nil {
			return nil, err
		}
	}

	cfg := tree.ToConfig()
	for i, hook := range s.rawFns {
		var merged *raw.Config
		var err error
		switch {
		case hook.Func != nil:
			patch, ferr := hook.Func(cfg)
			if ferr != nil {
				return nil, foundationerrors.ConfigError("configureWebpack hook failed").
					WithContext("hook", i).WithCause(ferr).Build()
			}
			if patch == nil {
				continue
			}
			merged, err = raw.Merge(cfg, patch)
		case hook.Literal != nil:
			merged, err = hook.Literal.MergeInto(cfg)
		default:
			continue
		}
		if err != nil {
			return nil, foundationerrors.ConfigError("cannot merge configureWebpack result").
				WithContext("hook", i).WithCause(err).Build()
		}
		cfg = merged
	}

	if plan.IsAppTarget() && !s.TestMode() && cfg.Output.PublicPath != s.projectOptions.BaseURL {
		return nil, foundationerrors.ConfigError(PublicPathMessage).
			WithContext("publicPath", cfg.Output.PublicPath).
			WithContext("baseUrl", s.projectOptions.BaseURL).
			Build()
	}
	s.metrics.ObserveConfigResolution(time.Since(start))
	return cfg, nil
}
