package cli

import (
	"fmt"
	"strconv"

	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/spf13/cobra"
)

var (
	entitiesSearch string
	entitiesLimit  int
	entitiesSkip   int

	entityDescription string
	entityCategory    string
	entityImages      []string
	entityName        string
)

var entitiesCmd = &cobra.Command{
	Use:     "entities",
	Aliases: []string{"entity"},
	Short:   "Manage the entities being ranked",
	Long: `List, inspect, create, update and delete entities.

Subcommands:
  list    List entities (default)
  show    Show one entity
  add     Create an entity
  update  Change an entity
  delete  Delete an entity

Examples:
  compere entities
  compere entities list --search pizza
  compere entities show 3
  compere entities add "Sakura Sushi" --category Japanese --description "Fresh sushi"
  compere entities update 3 --name "Sakura Sushi Bar"
  compere entities delete 3`,
	RunE: runEntitiesList,
}

var entitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE:  runEntitiesList,
}

var entitiesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesShow,
}

var entitiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesAdd,
}

var entitiesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an entity's fields",
	Long: `Change an entity. Only the flags you pass are sent.

Examples:
  compere entities update 3 --name "New name"
  compere entities update 3 --image https://example.com/a.jpg --image https://example.com/b.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runEntitiesUpdate,
}

var entitiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesDelete,
}

func init() {
	for _, c := range []*cobra.Command{entitiesCmd, entitiesListCmd} {
		c.Flags().StringVarP(&entitiesSearch, "search", "s", "", "filter by name or description")
		c.Flags().IntVarP(&entitiesLimit, "limit", "n", 50, "max results")
		c.Flags().IntVar(&entitiesSkip, "skip", 0, "results to skip")
	}

	entitiesAddCmd.Flags().StringVarP(&entityDescription, "description", "d", "", "description")
	entitiesAddCmd.Flags().StringVarP(&entityCategory, "category", "c", "", "category")
	entitiesAddCmd.Flags().StringSliceVarP(&entityImages, "image", "i", nil, "image URL (repeatable)")

	entitiesUpdateCmd.Flags().StringVar(&entityName, "name", "", "new name")
	entitiesUpdateCmd.Flags().StringVarP(&entityDescription, "description", "d", "", "new description")
	entitiesUpdateCmd.Flags().StringVarP(&entityCategory, "category", "c", "", "new category")
	entitiesUpdateCmd.Flags().StringSliceVarP(&entityImages, "image", "i", nil, "replacement image URLs (repeatable)")

	entitiesCmd.AddCommand(entitiesListCmd)
	entitiesCmd.AddCommand(entitiesShowCmd)
	entitiesCmd.AddCommand(entitiesAddCmd)
	entitiesCmd.AddCommand(entitiesUpdateCmd)
	entitiesCmd.AddCommand(entitiesDeleteCmd)
}

func runEntitiesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	entityStore.SetPage(entitiesSkip, entitiesLimit)
	entityStore.SetSearchQuery(entitiesSearch)
	if err := resultError(entityStore.Fetch(ctx, client.ListParams{
		Skip:   entitiesSkip,
		Limit:  entitiesLimit,
		Search: entitiesSearch,
	})); err != nil {
		return fmt.Errorf("list entities: %w", err)
	}

	entities := entityStore.Sorted()
	if len(entities) == 0 {
		fmt.Println("No entities found.")
		return nil
	}

	fmt.Printf("Entities (%d):\n\n", len(entities))
	for _, e := range entities {
		category := ""
		if e.Category != "" {
			category = " [" + e.Category + "]"
		}
		fmt.Printf("- #%d %s%s  %s\n", e.ID, e.Name, category, tierStyle(e.Rating).Render(simulation.FormatRating(e.Rating)))
		if verbose && e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
	}
	return nil
}

func runEntitiesShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	res := entityStore.FetchOne(cmd.Context(), id)
	if err := resultError(res); err != nil {
		return fmt.Errorf("get entity: %w", err)
	}
	printEntity(*res.Data)
	return nil
}

func runEntitiesAdd(cmd *cobra.Command, args []string) error {
	res := entityStore.Create(cmd.Context(), models.EntityInput{
		Name:        args[0],
		Description: entityDescription,
		Category:    entityCategory,
		ImageURLs:   entityImages,
	})
	if err := resultError(res); err != nil {
		return fmt.Errorf("create entity: %w", err)
	}

	fmt.Printf("Created entity #%d: %s\n", res.Data.ID, res.Data.Name)
	return nil
}

func runEntitiesUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var update models.EntityUpdate
	if cmd.Flags().Changed("name") {
		update.Name = &entityName
	}
	if cmd.Flags().Changed("description") {
		update.Description = &entityDescription
	}
	if cmd.Flags().Changed("category") {
		update.Category = &entityCategory
	}
	if cmd.Flags().Changed("image") {
		update.ImageURLs = entityImages
	}

	res := entityStore.Update(cmd.Context(), id, update)
	if err := resultError(res); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}

	fmt.Printf("Updated entity #%d\n", id)
	if verbose {
		printEntity(*res.Data)
	}
	return nil
}

func runEntitiesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := resultError(entityStore.Delete(cmd.Context(), id)); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}

	fmt.Printf("Deleted entity #%d\n", id)
	return nil
}

func printEntity(e models.Entity) {
	badge := simulation.RatingBadge(e.Rating)
	fmt.Printf("#%d %s\n", e.ID, e.Name)
	fmt.Printf("  Rating:   %s (%s)\n", tierStyle(e.Rating).Render(simulation.FormatRating(e.Rating)), badge.Text)
	if e.Category != "" {
		fmt.Printf("  Category: %s\n", e.Category)
	}
	if e.Description != "" {
		fmt.Printf("  %s\n", e.Description)
	}
	for _, u := range e.ImageURLs {
		fmt.Printf("  Image:    %s\n", u)
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
