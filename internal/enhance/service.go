package enhance

import (
	"context"

	"enhancerd/internal/acquire"
	"enhancerd/internal/catalog"
	"enhancerd/internal/compat"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

// Service is the facade the HTTP layer talks to. It composes the session,
// the acquisition engine, and the compatibility validator.
type Service struct {
	session   *Session
	engine    *acquire.Engine
	validator *compat.Validator
	content   store.ContentStore
}

func NewService(session *Session, engine *acquire.Engine, validator *compat.Validator, content store.ContentStore) *Service {
	return &Service{session: session, engine: engine, validator: validator, content: content}
}

func (s *Service) Enhance(ctx context.Context, req types.EnhanceRequest) types.EnhanceResult {
	return s.session.Enhance(ctx, req.Text, req.Style)
}

func (s *Service) Status() types.StatusResponse { return s.session.Status() }

func (s *Service) Models() []types.ModelDescriptor { return catalog.All() }

func (s *Service) Installed() types.InstalledResponse {
	resp := types.InstalledResponse{Installed: s.engine.ListInstalled()}
	if sel, ok, _ := s.content.Get(store.KeySelectedModel); ok {
		resp.Selected = sel
	}
	return resp
}

func (s *Service) Acquire(ctx context.Context, modelID, sourceURL string, onProgress func(types.Progress)) (bool, error) {
	if _, ok := catalog.Describe(modelID); !ok {
		return false, ErrModelNotFound(modelID)
	}
	return s.engine.Acquire(ctx, sourceURL, modelID, onProgress), nil
}

func (s *Service) Select(modelID string) error {
	return s.session.SelectModel(modelID)
}

func (s *Service) Remove(modelID string) error {
	if _, ok := s.engine.Record(modelID); !ok {
		return ErrModelNotFound(modelID)
	}
	if err := s.engine.Remove(modelID); err != nil {
		return err
	}
	// Rebuild lazily: the removed model may have been the bound one.
	s.session.teardown()
	return nil
}

func (s *Service) Validate(modelID string) types.CompatReport {
	return s.validator.Validate(modelID)
}

func (s *Service) Repair(modelID string) bool {
	return s.validator.Repair(modelID)
}

func (s *Service) Ready() bool {
	r := s.session.Readiness()
	return r == ReadinessReadyWithModel || r == ReadinessReadyFallbackOnly
}
