package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/storage"
	"github.com/segmentio/ksuid"
)

// CampaignArchiver stores campaign results as JSON objects keyed by
// <prefix>/<yyyy>/<mm>/<campaign id>.json. The month comes from the KSUID timestamp.
type CampaignArchiver struct {
	store  storage.ObjectStorage
	prefix string
}

// ArchivedCampaign is one entry of the archive listing.
type ArchivedCampaign struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
}

func NewCampaignArchiver(store storage.ObjectStorage, prefix string) *CampaignArchiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "campaigns"
	}
	return &CampaignArchiver{store: store, prefix: prefix}
}

// KeyFor returns the object key of a campaign id.
func (a *CampaignArchiver) KeyFor(id string) (string, error) {
	parsed, err := ksuid.Parse(id)
	if err != nil {
		return "", domain.NewError(domain.KindValidation, "campaign archive", fmt.Errorf("invalid campaign id %q: %w", id, err))
	}
	ts := parsed.Time().UTC()
	return path.Join(a.prefix, ts.Format("2006"), ts.Format("01"), parsed.String()+".json"), nil
}

// Archive uploads result and returns its key.
func (a *CampaignArchiver) Archive(ctx context.Context, result *domain.CampaignResult) (string, error) {
	key, err := a.KeyFor(result.ID)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode campaign: %w", err)
	}
	if err := a.store.PutObject(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// Load fetches an archived campaign by id.
func (a *CampaignArchiver) Load(ctx context.Context, id string) (*domain.CampaignResult, error) {
	key, err := a.KeyFor(id)
	if err != nil {
		return nil, err
	}

	body, err := a.store.GetObject(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.KindNotFound, "campaign archive", fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound))
	}
	if err != nil {
		return nil, err
	}

	var result domain.CampaignResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode campaign %s: %w", id, err)
	}
	return &result, nil
}

// Recent lists up to limit archived campaigns, newest first. Keys sort
// chronologically because both the month folders and KSUIDs do.
func (a *CampaignArchiver) Recent(ctx context.Context, limit int) ([]ArchivedCampaign, error) {
	objects, err := a.store.List(ctx, a.prefix+"/", 0)
	if err != nil {
		return nil, err
	}

	out := make([]ArchivedCampaign, 0, limit)
	for i := len(objects) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		name := path.Base(objects[i].Key)
		id, err := ksuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, ArchivedCampaign{
			ID:          id.String(),
			GeneratedAt: id.Time().UTC(),
			Size:        objects[i].Size,
			URL:         a.store.ObjectURL(objects[i].Key),
		})
	}
	return out, nil
}

// URL returns the storage URL of an archived campaign.
func (a *CampaignArchiver) URL(id string) (string, error) {
	key, err := a.KeyFor(id)
	if err != nil {
		return "", err
	}
	return a.store.ObjectURL(key), nil
}
