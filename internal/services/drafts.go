package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/cryptox"
	"github.com/vormiaphp/vormiaquery/internal/storage"
)

// formDraft is the stored form of a draft. Payload is JSON, sealed with
// AES-GCM when Encrypted is set.
type formDraft struct {
	Encrypted bool   `json:"encrypted"`
	Nonce     []byte `json:"nonce,omitempty"`
	Payload   []byte `json:"payload"`
}

// SaveFormData stores a draft of form. The draft is encrypted when the
// service has an encryption key.
func (a *authService) SaveFormData(ctx context.Context, form string, data any) error {
	draft, err := a.sealDraft(data)
	if err != nil {
		return fmt.Errorf("save form %s: %w", form, err)
	}
	return storage.SetJSON(ctx, a.store, a.key(formKey, form), draft)
}

// LoadFormData decodes the draft of form into v. A missing draft yields
// common.ErrNotFound.
func (a *authService) LoadFormData(ctx context.Context, form string, v any) error {
	var draft formDraft
	if err := storage.GetJSON(ctx, a.store, a.key(formKey, form), &draft); err != nil {
		return err
	}
	if err := a.openDraft(draft, v); err != nil {
		return fmt.Errorf("load form %s: %w", form, err)
	}
	return nil
}

func (a *authService) ClearFormData(ctx context.Context, form string) error {
	return a.store.Remove(ctx, a.key(formKey, form))
}

func (a *authService) sealDraft(data any) (formDraft, error) {
	if len(a.draftKey) == 0 {
		b, err := json.Marshal(data)
		return formDraft{Payload: b}, err
	}
	ct, nonce, err := cryptox.EncryptEntry(data, a.draftKey)
	if err != nil {
		return formDraft{}, err
	}
	return formDraft{Encrypted: true, Nonce: nonce, Payload: ct}, nil
}

func (a *authService) openDraft(d formDraft, v any) error {
	if !d.Encrypted {
		return json.Unmarshal(d.Payload, v)
	}
	if len(a.draftKey) == 0 {
		return common.ErrNoEncryptionKey
	}
	return cryptox.DecryptEntry(d.Payload, d.Nonce, a.draftKey, v)
}
