package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// ToggleLock flips an artifact's lock flag in its sidecar and returns
// the new state. A locked artifact is excluded from retention deletion
// until unlocked. Missing sidecars are created on first toggle.
func ToggleLock(ctx context.Context, dest domain.Storage, artifactPath string) (bool, error) {
	var sidecar domain.Sidecar

	data, err := dest.Read(ctx, domain.SidecarPath(artifactPath))
	if err != nil {
		return false, fmt.Errorf("read sidecar: %w", err)
	}
	if data != nil {
		if err := json.Unmarshal(data, &sidecar); err != nil {
			return false, fmt.Errorf("decode sidecar: %w", err)
		}
	}

	sidecar.Locked = !sidecar.Locked

	out, err := json.Marshal(sidecar)
	if err != nil {
		return false, fmt.Errorf("encode sidecar: %w", err)
	}
	if err := dest.Write(ctx, domain.SidecarPath(artifactPath), out); err != nil {
		return false, fmt.Errorf("write sidecar: %w", err)
	}

	return sidecar.Locked, nil
}
