package cmd

import (
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/recognize"
	"github.com/GriffinCanCode/confirmscout/internal/recognize/tesseract"
)

var recognizerCmd = &cobra.Command{
	Use:   "recognizer",
	Short: "Serve local OCR over gRPC for a remote confirmscout",
	Long: `Recognizer runs the Tesseract backend behind the gRPC recognizer service on
recognizer.listen. Point another instance at it with recognizer.backend=grpc
and recognizer.addr. Observations are returned unfiltered; the caller applies
its own targets.`,
	RunE: runRecognizer,
}

func init() {
	recognizerCmd.Flags().String("listen", "", "override recognizer.listen")
	rootCmd.AddCommand(recognizerCmd)
}

func runRecognizer(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr := cfg.Recognizer.Listen
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		addr = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ocr, err := tesseract.New(tesseract.Config{
		Languages:  cfg.Recognizer.Languages,
		Preprocess: cfg.Recognizer.Preprocess,
	})
	if err != nil {
		return err
	}
	defer func() { _ = ocr.Close() }()
	if err := ocr.Probe(ctx); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.Unavailable, "listen %s", addr)
	}

	gs := grpc.NewServer(recognize.ServerOptions()...)
	rs := recognize.RegisterServer(gs, ocr)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down recognizer")
		rs.Shutdown()
		gs.GracefulStop()
	}()

	slog.Info("recognizer serving", "addr", lis.Addr().String(), "languages", cfg.Recognizer.Languages)
	if err := gs.Serve(lis); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "serve recognizer")
	}
	return nil
}
