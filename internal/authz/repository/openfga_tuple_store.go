package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openfgaSdk "github.com/openfga/go-sdk"
	"github.com/openfga/go-sdk/client"

	"github.com/allisson/authkeyd/internal/authz/domain"
	apperrors "github.com/allisson/authkeyd/internal/errors"
)

// authorizationModel declares the eight object types of the fixed schema (§3) in
// OpenFGA's JSON model format. It declares type names only: none of the schema's
// relations or admin unions are defined in it. It is written once per tenant store by EnsureModel; upgrading it installs
// a new model version without deleting existing tuples, per §4.1.
var authorizationModel = openfgaSdk.AuthorizationModel{
	SchemaVersion: "1.1",
	TypeDefinitions: []openfgaSdk.TypeDefinition{
		{Type: "tenant"},
		{Type: "organization"},
		{Type: "user"},
		{Type: "role"},
		{Type: "log"},
		{Type: "log_entry"},
		{Type: "apikey"},
		{Type: "system"},
	},
}

// OpenFGATupleStore implements TupleStore in "per-tenant" mode (§4.1): every
// tenant is routed to its own OpenFGA store, named by a namespace template
// (e.g. "tenant-{id}"), with its own store id and model id cached after the
// first ensureStore/ensureModel call.
type OpenFGATupleStore struct {
	api             string
	nsTemplate      string
	mu              sync.Mutex
	clientsByTenant map[string]*client.OpenFgaClient
	storeIDs        map[string]string
	modelIDs        map[string]string
}

// NewOpenFGATupleStore creates an adapter that lazily provisions one OpenFGA
// store per tenant against apiURL, naming stores by nsTemplate (e.g.
// "tenant-{id}").
func NewOpenFGATupleStore(apiURL, nsTemplate string) *OpenFGATupleStore {
	return &OpenFGATupleStore{
		api:             apiURL,
		nsTemplate:      nsTemplate,
		clientsByTenant: map[string]*client.OpenFgaClient{},
		storeIDs:        map[string]string{},
		modelIDs:        map[string]string{},
	}
}

func (s *OpenFGATupleStore) storeName(tenantID string) string {
	return strings.ReplaceAll(s.nsTemplate, "{id}", tenantID)
}

func (s *OpenFGATupleStore) clientFor(tenantID string) (*client.OpenFgaClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clientsByTenant[tenantID]; ok {
		return c, nil
	}

	cfg := &client.ClientConfiguration{ApiUrl: s.api}
	if storeID, ok := s.storeIDs[tenantID]; ok {
		cfg.StoreId = storeID
	}
	if modelID, ok := s.modelIDs[tenantID]; ok {
		cfg.AuthorizationModelId = modelID
	}

	c, err := client.NewSdkClient(cfg)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	s.clientsByTenant[tenantID] = c
	return c, nil
}

// EnsureStore provisions a per-tenant OpenFGA store if one by this tenant's
// namespaced name doesn't already exist. Idempotent: an existing store is reused.
func (s *OpenFGATupleStore) EnsureStore(ctx context.Context, tenantID string) error {
	c, err := s.clientFor(tenantID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, alreadyHaveStore := s.storeIDs[tenantID]
	s.mu.Unlock()
	if alreadyHaveStore {
		return nil
	}

	name := s.storeName(tenantID)
	stores, err := c.ListStores(ctx).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	for _, existing := range stores.GetStores() {
		if existing.GetName() == name {
			s.rememberStore(tenantID, existing.GetId())
			return nil
		}
	}

	created, err := c.CreateStore(ctx).Body(client.ClientCreateStoreRequest{Name: name}).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	s.rememberStore(tenantID, created.GetId())
	return nil
}

// rememberStore records the tenant's store id and drops the cached client so
// the next clientFor call rebuilds it with the store id configured.
func (s *OpenFGATupleStore) rememberStore(tenantID, storeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeIDs[tenantID] = storeID
	delete(s.clientsByTenant, tenantID)
}

// EnsureModel writes the fixed authorization model into the tenant's store if no
// model has been written yet for this process lifetime. Writing a new model
// version never deletes prior tuples.
func (s *OpenFGATupleStore) EnsureModel(ctx context.Context, tenantID string) error {
	if err := s.EnsureStore(ctx, tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	_, alreadyHaveModel := s.modelIDs[tenantID]
	s.mu.Unlock()
	if alreadyHaveModel {
		return nil
	}

	// The cached client was rebuilt with the store id by EnsureStore.
	c, err := s.clientFor(tenantID)
	if err != nil {
		return err
	}

	resp, err := c.WriteAuthorizationModel(ctx).Body(client.ClientWriteAuthorizationModelRequest{
		SchemaVersion:   authorizationModel.SchemaVersion,
		TypeDefinitions: authorizationModel.TypeDefinitions,
	}).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreRejected, err.Error())
	}

	s.mu.Lock()
	s.modelIDs[tenantID] = resp.GetAuthorizationModelId()
	delete(s.clientsByTenant, tenantID)
	s.mu.Unlock()
	return nil
}

// WriteTuples writes tuples in deterministic order so a retried partial batch is
// idempotent regardless of OpenFGA's own write ordering.
func (s *OpenFGATupleStore) WriteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	if err := s.EnsureModel(ctx, tenantID); err != nil {
		return err
	}
	c, err := s.clientFor(tenantID)
	if err != nil {
		return err
	}

	keys := make([]client.ClientTupleKey, 0, len(tuples))
	for _, t := range sortedCopy(tuples) {
		keys = append(keys, client.ClientTupleKey{User: t.User, Relation: string(t.Relation), Object: t.Object})
	}

	_, err = c.WriteTuples(ctx).Body(keys).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return nil
}

// DeleteTuples removes tuples; OpenFGA treats deleting a missing tuple as a no-op.
func (s *OpenFGATupleStore) DeleteTuples(ctx context.Context, tenantID string, tuples []domain.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	c, err := s.clientFor(tenantID)
	if err != nil {
		return err
	}

	keys := make([]client.ClientTupleKeyWithoutCondition, 0, len(tuples))
	for _, t := range sortedCopy(tuples) {
		keys = append(keys, client.ClientTupleKeyWithoutCondition{User: t.User, Relation: string(t.Relation), Object: t.Object})
	}

	_, err = c.DeleteTuples(ctx).Body(keys).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}
	return nil
}

// DeleteTenantTuples is not a primitive OpenFGA operation; it is realized by
// deleting the tenant's store entirely, which drops every tuple and model
// version with it.
func (s *OpenFGATupleStore) DeleteTenantTuples(ctx context.Context, tenantID string) error {
	c, err := s.clientFor(tenantID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.storeIDs[tenantID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	_, err = c.DeleteStore(ctx).Execute()
	if err != nil {
		return apperrors.Wrap(domain.ErrTupleStoreUnavailable, err.Error())
	}

	s.mu.Lock()
	delete(s.storeIDs, tenantID)
	delete(s.modelIDs, tenantID)
	delete(s.clientsByTenant, tenantID)
	s.mu.Unlock()
	return nil
}

// ListTenantIDs returns the ids of the tenants whose store this process has
// already resolved or created (the keys of its in-memory store-id map). Stores
// created by a prior process instance that hasn't been queried yet in this one
// don't appear; C3's
// listTenants is a best-effort operational view, not an authorization check.
func (s *OpenFGATupleStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.storeIDs))
	for tenantID := range s.storeIDs {
		ids = append(ids, tenantID)
	}
	s.mu.Unlock()
	return ids, nil
}

// Check evaluates a relationship check against the tenant's OpenFGA store,
// folding in ephemeral contextual tuples that are never persisted.
func (s *OpenFGATupleStore) Check(
	ctx context.Context,
	tenantID, user string,
	relation domain.Relation,
	object string,
	contextualTuples []domain.Tuple,
) (bool, error) {
	if err := s.EnsureModel(ctx, tenantID); err != nil {
		return false, err
	}
	c, err := s.clientFor(tenantID)
	if err != nil {
		return false, err
	}

	body := client.ClientCheckRequest{
		User:     user,
		Relation: string(relation),
		Object:   object,
	}
	if len(contextualTuples) > 0 {
		keys := make([]client.ClientContextualTupleKey, 0, len(contextualTuples))
		for _, t := range contextualTuples {
			keys = append(keys, client.ClientContextualTupleKey{User: t.User, Relation: string(t.Relation), Object: t.Object})
		}
		body.ContextualTuples = keys
	}

	resp, err := c.Check(ctx).Body(body).Execute()
	if err != nil {
		return false, apperrors.Wrap(domain.ErrTupleStoreUnavailable, fmt.Sprintf("openfga check: %v", err))
	}
	return resp.GetAllowed(), nil
}
