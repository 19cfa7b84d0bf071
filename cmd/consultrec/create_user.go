package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
)

// The password is read from the environment so it stays out of shell history.
const passwordEnv = "CONSULTREC_USER_PASSWORD"

func createUserCmd() *cobra.Command {
	var in service.CreateUserInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision a user account",
		Long:  "Creates a user. The password is taken from $" + passwordEnv + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Password = os.Getenv(passwordEnv)
			if in.Password == "" {
				return fmt.Errorf("%s is not set", passwordEnv)
			}
			in.Role = domain.Role(role)

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repos, err := openRepositories(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer func() { _ = repos.close(cmd.Context()) }()

			m := metrics.NewCollector(cfg.App.Name, prometheus.NewRegistry())
			auditSvc := service.NewAuditService(repos.audit, m, log)
			defer auditSvc.Shutdown(cfg.Server.ShutdownTimeout)

			svc := service.NewAuthService(repos.users, auth.NewJWTManager(cfg.JWT), auditSvc, log)
			u, err := svc.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}

			log.Info("user created",
				zap.String("user_id", u.ID.String()),
				zap.String("email", u.Email),
				zap.String("role", string(u.Role)),
				zap.String("location", u.Location),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Login email")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleDoctor), "admin or doctor")
	cmd.Flags().StringVar(&in.Location, "location", "", "Hospital site; required for doctors to see any consultations")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
