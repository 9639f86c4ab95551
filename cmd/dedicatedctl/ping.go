package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ngone6325/dedicated"
	"github.com/Ngone6325/dedicated/connection"
	"github.com/Ngone6325/dedicated/di"
	"github.com/Ngone6325/dedicated/orm"
)

var pingCmd = &cobra.Command{
	Use:   "ping <channel>...",
	Short: "Open each channel's dedicated entity manager and ping its connection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close(cmd.Context())

		ctx := cmd.Context()
		conns := connection.NewFactory(env.cfg, env.logger)
		defer conns.Close()

		b, err := env.builder(conns)
		if err != nil {
			return err
		}

		defaultConn, err := conns.CreateConnection(ctx, "default")
		if err != nil {
			return err
		}
		defaultManager, err := orm.NewManager(defaultConn, &orm.Configuration{
			IdentityTTL:     env.cfg.Session.IdentityTTL,
			CleanupInterval: env.cfg.Session.CleanupInterval,
			ProxyNamespace:  env.cfg.Session.ProxyNamespace,
		})
		if err != nil {
			return err
		}
		if err := dedicated.RegisterDefaultEntityManager(b, env.naming, defaultManager); err != nil {
			return err
		}

		pass := dedicated.NewChannelPass(env.naming, env.logger)
		for _, ch := range args {
			if err := pass.Materialize(b, ch); err != nil {
				return err
			}
		}
		c, err := b.Compile()
		if err != nil {
			return err
		}

		registries, err := di.Get[*dedicated.ManagerRegistryFactory](ctx, c, env.naming.RegistryFactoryID())
		if err != nil {
			return err
		}
		managers, err := di.Get[*dedicated.EntityManagerFactory](ctx, c, env.naming.EntityManagerFactoryID())
		if err != nil {
			return err
		}
		defer managers.CloseAll()

		for _, ch := range args {
			reg, err := registries.CreateRegistry(ctx, ch)
			if err != nil {
				return err
			}
			em, err := reg.Manager(ctx, "")
			if err != nil {
				return fmt.Errorf("%s: %w", ch, err)
			}
			if err := em.Connection().PingContext(ctx); err != nil {
				return fmt.Errorf("%s: %w", ch, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\t%s\n", ch, reg.ManagerNames()[ch])
		}
		return nil
	},
}
