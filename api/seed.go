package api

import (
	"context"
	"log/slog"

	"github.com/ddevcap/mcu-rankings/config"
	"github.com/ddevcap/mcu-rankings/session"
)

// ProvisionAdmin creates the admin account at startup when
// INITIAL_ADMIN_PASSWORD is set. An existing account is left untouched, so
// it is safe to call on every startup. Login itself never creates accounts.
func ProvisionAdmin(ctx context.Context, p session.Provisioner, cfg config.Config) {
	if cfg.InitialAdminPassword == "" {
		slog.Info("provision: INITIAL_ADMIN_PASSWORD is not set, skipping admin provisioning. " +
			"Run `mcurankings provision-admin` to create the admin account.")
		return
	}
	if err := session.Provision(ctx, p, cfg.AdminEmail, cfg.InitialAdminPassword); err != nil {
		slog.Error("provision: failed to create admin account", "email", cfg.AdminEmail, "error", err)
	}
}
