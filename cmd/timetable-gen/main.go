package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusops/timetabler/internal/dto"
	"github.com/campusops/timetabler/internal/repository"
	"github.com/campusops/timetabler/internal/scheduler"
	"github.com/campusops/timetabler/internal/service"
	"github.com/campusops/timetabler/pkg/cache"
	"github.com/campusops/timetabler/pkg/config"
	"github.com/campusops/timetabler/pkg/database"
	"github.com/campusops/timetabler/pkg/logger"
)

func main() {
	var (
		department = flag.String("department", "", "department code (e.g. CSE)")
		semester   = flag.Int("semester", 0, "semester number 1-8")
		year       = flag.String("year", "", "academic year (e.g. 2026-27)")
		name       = flag.String("name", "", "timetable name (optional)")
		division   = flag.String("division", "", "division label (optional)")
		seed       = flag.Int64("seed", 0, "RNG seed override; 0 uses config")
		analyze    = flag.Bool("analyze", false, "run a feasibility check instead of generating")
		course     = flag.String("course", "", "look up a course by code and exit")
		save       = flag.Bool("save", false, "persist the generated timetable")
		publish    = flag.Bool("publish", false, "publish after saving (implies -save)")
		exportFmt  = flag.String("export", "", "export format: csv or pdf (requires -save or -timetable)")
		timetable  = flag.String("timetable", "", "export an existing timetable by id")
		out        = flag.String("out", "", "output path for exports (defaults to generated filename)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Scheduler.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			repo := repository.NewCacheRepository(client)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, cfg.Scheduler.CacheEnabled)

	engineCfg := scheduler.DefaultConfig()
	engineCfg.Seed = cfg.Scheduler.Seed

	timetables := repository.NewTimetableRepository(db)
	svc := service.NewTimetableService(
		repository.NewCourseRepository(db),
		repository.NewFacultyRepository(db),
		repository.NewRoomRepository(db),
		timetables,
		db,
		cacheSvc,
		metrics,
		validator.New(),
		logr,
		service.TimetableServiceConfig{
			Engine:      engineCfg,
			ProposalTTL: cfg.Scheduler.ProposalTTL,
			CacheTTL:    cfg.Scheduler.CacheTTL,
		},
	)
	exporter := service.NewExportService(timetables, engineCfg, logr, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch {
	case *course != "":
		if err := runCourseLookup(ctx, svc, *course); err != nil {
			logr.Sugar().Fatalw("course lookup failed", "error", err)
		}
	case *timetable != "":
		if err := runExport(ctx, exporter, *timetable, *exportFmt, *out); err != nil {
			logr.Sugar().Fatalw("export failed", "error", err)
		}
	case *analyze:
		if err := runAnalyze(ctx, svc, *department, *semester); err != nil {
			logr.Sugar().Fatalw("analysis failed", "error", err)
		}
	default:
		if err := runGenerate(ctx, svc, exporter, generateOptions{
			department: *department,
			semester:   *semester,
			year:       *year,
			name:       *name,
			division:   *division,
			seed:       *seed,
			save:       *save || *publish,
			publish:    *publish,
			exportFmt:  *exportFmt,
			out:        *out,
		}); err != nil {
			logr.Sugar().Fatalw("generation failed", "error", err)
		}
	}
}

type generateOptions struct {
	department string
	semester   int
	year       string
	name       string
	division   string
	seed       int64
	save       bool
	publish    bool
	exportFmt  string
	out        string
}

func runGenerate(ctx context.Context, svc *service.TimetableService, exporter *service.ExportService, opts generateOptions) error {
	resp, err := svc.Generate(ctx, dto.GenerateTimetableRequest{
		Department:   opts.department,
		Semester:     opts.semester,
		AcademicYear: opts.year,
		Name:         opts.name,
		Division:     opts.division,
		Seed:         opts.seed,
	})
	if err != nil {
		return err
	}

	printJSON(map[string]interface{}{
		"proposal_id": resp.ProposalID,
		"entries":     len(resp.Entries),
		"stats":       resp.Stats,
	})

	if !opts.save {
		return nil
	}

	id, err := svc.Save(ctx, dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Publish: opts.publish})
	if err != nil {
		return err
	}
	fmt.Printf("saved timetable %s\n", id)

	if opts.exportFmt != "" {
		return runExport(ctx, exporter, id, opts.exportFmt, opts.out)
	}
	return nil
}

func runCourseLookup(ctx context.Context, svc *service.TimetableService, code string) error {
	course, err := svc.Course(ctx, code)
	if err != nil {
		return err
	}
	printJSON(course)
	return nil
}

func runAnalyze(ctx context.Context, svc *service.TimetableService, department string, semester int) error {
	analysis, err := svc.Analyze(ctx, dto.AnalyzeConstraintsRequest{Department: department, Semester: semester})
	if err != nil {
		return err
	}
	printJSON(analysis)
	return nil
}

func runExport(ctx context.Context, exporter *service.ExportService, timetableID, format, out string) error {
	var (
		payload  []byte
		filename string
		err      error
	)
	switch format {
	case "csv":
		payload, filename, err = exporter.ExportCSV(ctx, timetableID)
	case "pdf":
		payload, filename, err = exporter.ExportPDF(ctx, timetableID)
	default:
		return fmt.Errorf("unsupported export format %q (use csv or pdf)", format)
	}
	if err != nil {
		return err
	}
	if out != "" {
		filename = out
	}
	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("wrote %s\n", filename)
	return nil
}

func printJSON(v interface{}) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(encoded))
}
