package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cv-mapper/resume/model"
	"cv-mapper/resume/service"
)

type assetFlags struct {
	template string
	image    string
}

func (f *assetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "assets/cv_template_skiils.docx", "Path to the DOCX template")
	cmd.Flags().StringVarP(&f.image, "image", "i", "assets/img.png", "Path to the image appended to each experience")
}

func (f *assetFlags) load() (service.Assets, error) {
	template, err := os.ReadFile(f.template)
	if err != nil {
		return service.Assets{}, fmt.Errorf("failed to read template: %w", err)
	}
	img, err := os.ReadFile(f.image)
	if err != nil {
		return service.Assets{}, fmt.Errorf("failed to read image: %w", err)
	}
	return service.Assets{Template: template, Image: img}, nil
}

func newRenderCmd() *cobra.Command {
	var (
		assets  assetFlags
		cvFile  string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a CV JSON file onto the template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(cvFile)
			if err != nil {
				return fmt.Errorf("failed to read cv file: %w", err)
			}
			cv, err := model.Decode(raw)
			if err != nil {
				return fmt.Errorf("failed to parse cv file: %w", err)
			}
			a, err := assets.load()
			if err != nil {
				return err
			}
			mapper, err := service.NewMapper(a, nil)
			if err != nil {
				return err
			}
			result, err := mapper.Render(cmd.Context(), cv)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outFile, result.Document, 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d experiences, %d bytes)\n", outFile, result.Experiences, len(result.Document))
			return nil
		},
	}
	assets.register(cmd)
	cmd.Flags().StringVarP(&cvFile, "cv", "c", "", "Path to the CV JSON file (required)")
	cmd.Flags().StringVarP(&outFile, "out", "o", service.OutputFileName, "Path to the output DOCX")
	_ = cmd.MarkFlagRequired("cv")
	return cmd
}
