package policy

import "custody-vault/go-backend/internal/domains/vault/model"

// RequireRoot allows privileged calls only from the designated system root.
// An unset root authorizes nobody.
func RequireRoot(root, caller model.Address) error {
	if root == "" || caller != root {
		return model.ErrUnauthorized
	}
	return nil
}

// RequireUnpaused gates asset movement on the admin pause flag.
func RequireUnpaused(cfg model.AdminConfig) error {
	if cfg.Paused {
		return model.ErrVaultPaused
	}
	return nil
}
