// import_stock aplica un conteo físico desde CSV como ajustes SET sobre el inventario.
//
// Uso: go run ./cmd/import_stock [--latin1] [--comma ';'] [--actor nombre] [--reason texto] conteo.csv
// Columnas: sku, quantity y opcionalmente warehouse (vacío = bodega por defecto).
// Usa la misma configuración (DB_*, INVENTORY_DEFAULT_WAREHOUSE) que la API.
package main

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"github.com/jhoicas/backoffice-api/internal/application/inventory"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/csvimport"
	"github.com/jhoicas/backoffice-api/internal/infrastructure/postgres"
	"github.com/jhoicas/backoffice-api/pkg/config"
	"github.com/jhoicas/backoffice-api/pkg/logger"
)

func main() {
	latin1 := pflag.Bool("latin1", false, "el archivo viene en ISO-8859-1")
	comma := pflag.String("comma", ",", "separador de columnas")
	actor := pflag.String("actor", "import_stock", "usuario registrado en los movimientos")
	reason := pflag.String("reason", "conteo físico", "motivo de los movimientos")
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_stock [flags] archivo.csv")
		pflag.PrintDefaults()
		os.Exit(2)
	}
	sep, _ := utf8.DecodeRuneInString(*comma)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if cfg.DB.Driver == "memory" {
		log.Fatal().Msg("import_stock requiere DB_DRIVER=postgres")
	}

	f, err := os.Open(pflag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir CSV")
	}
	defer f.Close()
	lines, err := csvimport.ParseStockCount(f, csvimport.Options{Comma: sep, Latin1: *latin1})
	if err != nil {
		log.Fatal().Err(err).Msg("leer CSV")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	repos := postgres.Repos(pool)
	recorder := inventory.NewMovementRecorder(repos.Movements, nil, log.Component("movements"))
	engine := inventory.NewAllocationEngine(postgres.NewTxRunner(pool), repos.Inventory, recorder, cfg.Inventory.DefaultWarehouse, log.Component("allocation"))
	res := inventory.NewStockTake(engine, repos.Products, log.Component("stock_take")).Apply(ctx, lines, *actor, *reason)

	for _, fl := range res.Failures {
		fmt.Fprintf(os.Stderr, "línea %d (%s): %s\n", fl.Line, fl.SKU, fl.Error)
	}
	fmt.Printf("%d filas aplicadas, %d rechazadas\n", res.Applied, len(res.Failures))
	if len(res.Failures) > 0 {
		pool.Close()
		os.Exit(1)
	}
}
