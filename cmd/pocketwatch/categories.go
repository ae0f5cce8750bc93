package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfinch/pocketwatch/internal/config"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/storage"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage spending categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the household's categories",
		RunE:  runCategoriesList,
	}
	list.Flags().Bool("include-inactive", false, "include deactivated categories")

	add := &cobra.Command{
		Use:   "add <name> <slug>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runCategoriesAdd,
	}
	add.Flags().String("icon", "", "category icon")
	add.Flags().Int("sort-order", 0, "position in listings")

	cmd.AddCommand(list, add)
	return cmd
}

func openStoreWithPrincipal(cmd *cobra.Command) (*storage.SQLiteStorage, model.Principal, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("database.path")))
	if err != nil {
		return nil, model.Principal{}, fmt.Errorf("failed to open database: %w", err)
	}

	token := viper.GetString("api_token")
	if token == "" {
		token = storage.SeedUserToken
	}
	user, err := store.GetUserByToken(cmd.Context(), token)
	if err != nil {
		_ = store.Close()
		return nil, model.Principal{}, fmt.Errorf("failed to resolve user: %w", err)
	}
	return store, user.Principal(), nil
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	store, principal, err := openStoreWithPrincipal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	includeInactive, _ := cmd.Flags().GetBool("include-inactive")
	categories, err := store.GetCategories(cmd.Context(), principal.HouseholdID, includeInactive)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	for _, cat := range categories {
		status := ""
		if !cat.IsActive {
			status = " (inactive)"
		}
		fmt.Printf("%3d  %s %s [%s]%s\n", cat.SortOrder, cat.Icon, cat.Name, cat.Slug, status)
	}
	return nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	store, principal, err := openStoreWithPrincipal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	icon, _ := cmd.Flags().GetString("icon")
	sortOrder, _ := cmd.Flags().GetInt("sort-order")

	category := &model.Category{
		HouseholdID: principal.HouseholdID,
		Name:        args[0],
		Slug:        args[1],
		Icon:        icon,
		SortOrder:   sortOrder,
		IsActive:    true,
	}
	if err := store.CreateCategory(cmd.Context(), category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	fmt.Printf("Created category %s [%s]\n", category.Name, category.Slug)
	return nil
}
