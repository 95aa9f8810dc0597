package odoosync

import (
	"context"
	"errors"
	"fmt"
)

// SyncItem is one local record prepared for mirroring: the mutable payload
// shared by update and create, plus the create-only fields (generated codes)
// the update step must not send.
type SyncItem struct {
	LocalId    int
	NaturalKey string
	Label      string
	Payload    map[string]interface{}
	CreateOnly map[string]interface{}
}

// EntitySyncer adapts one local entity type to the shared upsert protocol.
// One implementation per synced type keeps the state machine shared while
// the field mapping varies.
type EntitySyncer interface {
	EntityType() string
	// Resource is the adapter's collection path segment.
	Resource() string
	// List returns every active record of this type for a full catalog sync.
	List(ctx context.Context) ([]SyncItem, error)
	// Load returns one record for a single-entity sync.
	Load(ctx context.Context, localId int) (*SyncItem, error)
	// PersistOdooId stores the remote id. Called only after a successful
	// round trip.
	PersistOdooId(ctx context.Context, localId int, odooId string) error
}

// UpsertEntity runs the update-then-create protocol for one record:
//
//  1. update addressed by natural key; update-first avoids duplicate
//     creation on retry, since create is not idempotent without a prior
//     existence check;
//  2. on the adapter's not-found signal, create with the same payload plus
//     create-only fields, which handles legitimate first-time syncs without
//     a separate existence round trip;
//  3. persist the remote id only after either call succeeds;
//  4. any other failure at either step is terminal for this record: it is
//     surfaced to the caller, not retried here, and already-synced entities
//     are untouched.
func UpsertEntity(ctx context.Context, client *Client, syncer EntitySyncer, item SyncItem) (externalId string, created bool, err error) {
	if item.NaturalKey == "" {
		return "", false, errors.New("natural key is required")
	}

	externalId, err = client.UpdateEntity(ctx, syncer.Resource(), item.NaturalKey, item.Payload)
	if err == nil {
		if externalId != "" {
			if perr := syncer.PersistOdooId(ctx, item.LocalId, externalId); perr != nil {
				return externalId, false, fmt.Errorf("persist odoo id: %w", perr)
			}
		}
		return externalId, false, nil
	}
	if !IsNotFound(err) {
		return "", false, err
	}

	payload := make(map[string]interface{}, len(item.Payload)+len(item.CreateOnly))
	for k, v := range item.Payload {
		payload[k] = v
	}
	for k, v := range item.CreateOnly {
		payload[k] = v
	}

	externalId, err = client.CreateEntity(ctx, syncer.Resource(), payload)
	if err != nil {
		return "", false, err
	}
	if externalId == "" {
		return "", false, errors.New("adapter create returned no id")
	}
	if perr := syncer.PersistOdooId(ctx, item.LocalId, externalId); perr != nil {
		return externalId, true, fmt.Errorf("persist odoo id: %w", perr)
	}
	return externalId, true, nil
}
