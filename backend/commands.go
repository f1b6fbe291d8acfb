package main

import (
	"context"
	"fmt"
	"os"

	"cognitory/backend/controllers"
	"cognitory/backend/models"
	"cognitory/backend/utils"

	"github.com/spf13/cobra"
)

func addMigrateCommand(rootCommand *cobra.Command) {
	migrateCommand := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, logger, err := setup()
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
				os.Exit(1)
			}
			db, err := utils.InitDB(cfg)
			if err != nil {
				logger.Fatal().Err(err).Msg("Error initializing database")
			}
			defer utils.CloseDB(db, logger)

			if err := models.Migrate(db); err != nil {
				logger.Fatal().Err(err).Msg("Migration failed")
			}
			logger.Info().Msg("Database is up to date")
		},
	}
	rootCommand.AddCommand(migrateCommand)
}

func addUserCommands(rootCommand *cobra.Command) {
	userCommand := &cobra.Command{
		Use:   "user",
		Short: "Admin commands for managing users",
	}
	rootCommand.AddCommand(userCommand)

	createUserCommand := &cobra.Command{
		Use:   "create",
		Short: "Create an approved user, e.g. the first super",
		Run: func(cmd *cobra.Command, args []string) {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			cfg, logger, err := setup()
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
				os.Exit(1)
			}
			db, err := utils.InitDB(cfg)
			if err != nil {
				logger.Fatal().Err(err).Msg("Error initializing database")
			}
			defer utils.CloseDB(db, logger)
			if err := models.Migrate(db); err != nil {
				logger.Fatal().Err(err).Msg("Migration failed")
			}

			user, err := controllers.BootstrapUser(context.Background(), db, cfg, controllers.BootstrapUserInput{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to create user")
			}
			fmt.Printf("Created %s %s (%s)\n", user.Role, user.Email, user.ID)
		},
	}
	createUserCommand.Flags().String("name", "", "")
	createUserCommand.Flags().String("email", "", "")
	createUserCommand.Flags().String("password", "", "")
	createUserCommand.Flags().String("role", models.RoleSuper, "user, admin or super")
	createUserCommand.MarkFlagRequired("name")
	createUserCommand.MarkFlagRequired("email")
	createUserCommand.MarkFlagRequired("password")
	userCommand.AddCommand(createUserCommand)
}
