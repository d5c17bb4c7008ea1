package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loveinaction/internal/database"
	"loveinaction/internal/repository"
	"loveinaction/internal/service"
)

var (
	exportOutput string
	recordRuns   bool
)

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "Detect or repair sponsorships whose sponsor lacks the back-relation",
}

var relationsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List orphaned sponsorships",
	RunE:  runRelationsDetect,
}

var relationsRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Link every orphaned sponsorship back to its sponsor",
	RunE:  runRelationsRepair,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sponsors, sponsorships and children to JSON",
	RunE:  runExport,
}

func init() {
	relationsCmd.PersistentFlags().BoolVar(&recordRuns, "record", false, "Record the run in the local database")
	relationsCmd.AddCommand(relationsDetectCmd)
	relationsCmd.AddCommand(relationsRepairCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: loveinaction_export_YYYYMMDD_HHMMSS.json)")
}

// relationService builds the service, optionally recording runs in the
// database the server uses. The returned func releases the database.
func relationService() (*service.RelationService, func(), error) {
	linker := service.NewRelationLinker(client, nil)
	if !recordRuns {
		return service.NewRelationService(client, linker, nil), func() {}, nil
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return service.NewRelationService(client, linker, repository.NewRepairRepository(db)), func() { db.Close() }, nil
}

func runRelationsDetect(cmd *cobra.Command, args []string) error {
	relations, release, err := relationService()
	if err != nil {
		return err
	}
	defer release()

	result, err := relations.Detect(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("Detection complete", zap.Int("checked", result.TotalChecked), zap.Int("orphaned", result.OrphanedFound))

	return printResult(cmd.OutOrStdout(), result, func(w io.Writer) {
		fmt.Fprintf(w, "Checked %d sponsorships, %d orphaned\n", result.TotalChecked, result.OrphanedFound)
		for _, o := range result.OrphanedSponsorships {
			fmt.Fprintf(w, "  sponsorship %d (%s) -> sponsor %d <%s>\n", o.SponsorshipID, o.SponsorshipStatus, o.SponsorID, o.SponsorEmail)
		}
	})
}

func runRelationsRepair(cmd *cobra.Command, args []string) error {
	relations, release, err := relationService()
	if err != nil {
		return err
	}
	defer release()

	result, err := relations.Repair(cmd.Context())
	if err != nil {
		return err
	}
	for _, d := range result.Details {
		if !d.Success {
			logger.Warn("Repair failed",
				zap.Int64("sponsorship", d.SponsorshipID),
				zap.String("sponsor", d.SponsorEmail),
				zap.Int("attempts", d.Attempts),
				zap.String("error", d.Error),
			)
		}
	}

	err = printResult(cmd.OutOrStdout(), result, func(w io.Writer) {
		fmt.Fprintf(w, "Repair completed: %d successful, %d failed (of %d orphaned)\n",
			result.RepairsSuccessful, result.RepairsFailed, result.OrphanedFound)
	})
	if err != nil {
		return err
	}
	if result.RepairsFailed > 0 {
		return fmt.Errorf("%d repairs failed", result.RepairsFailed)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("loveinaction_export_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	logger.Info("Exporting records", zap.String("output", outputPath))
	data, err := service.NewMaintenanceService(client).Export(cmd.Context(), f)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sponsors, %d sponsorships, %d children to %s\n",
		len(data.Sponsors), len(data.Sponsorships), len(data.Children), outputPath)
	return nil
}
