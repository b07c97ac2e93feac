// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ege-billing/internal/config"
	pg "ege-billing/internal/infra/db/postgres"
	"ege-billing/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool))

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, modules=%v, price=%d kop)\n", p.ID, p.DurationDays, p.Modules, p.PriceKopecks)
		}
		return
	}

	seed := []struct {
		ID           string
		Name         string
		Modules      []string
		Days         int
		Price        int64
		RoleGranting bool
		RoleTier     string
	}{
		{"trial_7days", "Пробный доступ", []string{"test_part"}, 7, 0, false, ""},
		{"package_test_part", "Тестовая часть", []string{"test_part"}, 30, 149_000, false, ""},
		{"package_full", "Полный доступ", []string{"test_part", "task19", "task20"}, 30, 299_000, false, ""},
		{"teacher_basic", "Учитель Базовый", []string{"teacher_mode"}, 30, 499_000, true, "teacher_basic"},
		{"teacher_pro", "Учитель Про", []string{"teacher_mode", "test_part", "task19", "task20"}, 30, 899_000, true, "teacher_pro"},
	}

	for _, s := range seed {
		p, err := planUC.Create(ctx, s.ID, s.Name, s.Modules, s.Days, s.Price, s.RoleGranting, s.RoleTier)
		if err != nil {
			log.Fatalf("create plan %q: %v", s.ID, err)
		}
		fmt.Printf("seeded: %s (days=%d, modules=%v, price=%d kop)\n", p.ID, p.DurationDays, p.Modules, p.PriceKopecks)
	}

	fmt.Println("✅ Seeding complete.")
}
