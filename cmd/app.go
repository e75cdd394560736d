package cmd

import (
	"fmt"

	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/ondrejvana/rollcall/internal/config"
	"github.com/ondrejvana/rollcall/internal/gallery"
	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
)

// app bundles the wired-up application for CLI commands.
type app struct {
	config  *config.Config
	store   *store.Store
	gallery *gallery.Gallery
	service *attendance.Service
}

// newApp opens the data directory and wires the attendance service.
func newApp() (*app, error) {
	cfg := config.Load()

	st, err := store.Open(cfg.Data.Dir, cfg.Defaults.Settings)
	if err != nil {
		return nil, fmt.Errorf("opening data directory %s: %w", cfg.Data.Dir, err)
	}

	g := gallery.New(cfg.Matching.Threshold)
	client := recognizer.NewClient(cfg.Embedding.URL)

	service := attendance.New(attendance.Deps{
		Students:  st.Students,
		Settings:  st.Settings,
		Ledger:    st.Ledger,
		Encodings: st.Encodings,
		Gallery:   g,
		Detector:  client,
		SavePhoto: st.SaveEnrollmentPhoto,

		EmbeddingDim: cfg.Embedding.Dim,
	})

	if err := service.LoadGallery(); err != nil {
		return nil, err
	}

	return &app{config: cfg, store: st, gallery: g, service: service}, nil
}
