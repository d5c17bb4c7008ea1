package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loveinaction/internal/service"
)

var (
	seedFile     string
	imagesDir    string
	contentTypes []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create children, blogs, services, events and causes from a YAML file",
	RunE:  runSeed,
}

var uploadImagesCmd = &cobra.Command{
	Use:   "upload-images",
	Short: "Upload child photos named like first_last_1.jpg and attach them",
	RunE:  runUploadImages,
}

var linkImagesCmd = &cobra.Command{
	Use:   "link-images",
	Short: "Link already uploaded media to children by file name",
	RunE:  runLinkImages,
}

var checkDuplicatesCmd = &cobra.Command{
	Use:   "check-duplicates",
	Short: "Report children sharing a full name",
	RunE:  runCheckDuplicates,
}

var fixPermissionsCmd = &cobra.Command{
	Use:   "fix-permissions",
	Short: "Allow anonymous find/findOne on the public content types",
	RunE:  runFixPermissions,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file (required)")
	_ = seedCmd.MarkFlagRequired("file")

	uploadImagesCmd.Flags().StringVarP(&imagesDir, "dir", "d", "", "Directory of image files (required)")
	_ = uploadImagesCmd.MarkFlagRequired("dir")

	fixPermissionsCmd.Flags().StringSliceVar(&contentTypes, "type", service.PublicContentTypes, "Content type uid to open (repeatable)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	seed, err := service.LoadSeedFile(f)
	if err != nil {
		return err
	}

	logger.Info("Seeding CMS", zap.String("file", seedFile))
	results := service.NewMaintenanceService(client).Seed(cmd.Context(), seed)

	failed := 0
	for _, r := range results {
		failed += r.Failed
		for _, e := range r.Errors {
			logger.Warn("Seed record failed", zap.String("collection", r.Collection), zap.String("error", e))
		}
	}

	err = printResult(cmd.OutOrStdout(), results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "%-10s created %d, failed %d\n", r.Collection, r.Created, r.Failed)
		}
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d records failed", failed)
	}
	return nil
}

func runUploadImages(cmd *cobra.Command, args []string) error {
	logger.Info("Uploading child images", zap.String("dir", imagesDir))
	report, err := service.NewMaintenanceService(client).UploadImages(cmd.Context(), imagesDir)
	if err != nil {
		return err
	}
	return reportImages(cmd.OutOrStdout(), report)
}

func runLinkImages(cmd *cobra.Command, args []string) error {
	logger.Info("Linking uploaded media to children")
	report, err := service.NewMaintenanceService(client).LinkImages(cmd.Context())
	if err != nil {
		return err
	}
	return reportImages(cmd.OutOrStdout(), report)
}

func reportImages(w io.Writer, report *service.ImageReport) error {
	for _, e := range report.Errors {
		logger.Warn("Image task failed", zap.String("error", e))
	}
	err := printResult(w, report, func(w io.Writer) {
		fmt.Fprintf(w, "Children linked: %d\n", report.Linked)
		fmt.Fprintf(w, "Files uploaded:  %d\n", report.Uploaded)
		fmt.Fprintf(w, "Failures:        %d\n", report.Failed)
		if len(report.Unmatched) > 0 {
			fmt.Fprintf(w, "No child found for: %s\n", strings.Join(report.Unmatched, ", "))
		}
	})
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d image operations failed", report.Failed)
	}
	return nil
}

func runCheckDuplicates(cmd *cobra.Command, args []string) error {
	groups, err := service.NewMaintenanceService(client).CheckDuplicates(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), groups, func(w io.Writer) {
		if len(groups) == 0 {
			fmt.Fprintln(w, "No duplicate children found")
			return
		}
		for _, g := range groups {
			fmt.Fprintf(w, "%q appears %d times:\n", g.Name, len(g.Children))
			for _, c := range g.Children {
				fmt.Fprintf(w, "  id=%d documentId=%s\n", c.ID, c.DocumentID)
			}
		}
	})
}

func runFixPermissions(cmd *cobra.Command, args []string) error {
	logger.Info("Updating public role permissions", zap.Strings("types", contentTypes))
	if err := service.NewMaintenanceService(client).FixPermissions(cmd.Context(), contentTypes); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Public find/findOne enabled for %d content types\n", len(contentTypes))
	return nil
}
