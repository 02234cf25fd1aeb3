package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/internal/app/service"
	"github.com/ikkim/inventory-backend/internal/backend"
	"github.com/ikkim/inventory-backend/internal/imaging"
	"github.com/ikkim/inventory-backend/internal/spreadsheet"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

func main() {
	yes := flag.Bool("y", false, "import without asking for confirmation")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: go run cmd/seed/main.go [-y] <xlsx_file_path>")
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: "console", EnableColor: true})

	ctx := context.Background()
	stores, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage backends:", err)
	}
	defer stores.Close()

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	rows, problems, err := spreadsheet.ReadProducts(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, p := range problems {
		fmt.Printf("Skipping %v\n", p)
	}
	fmt.Printf("Total products to import: %d (store: %s)\n", len(rows), cfg.Store.Backend)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	productService := service.NewProductService(
		stores.Products,
		stores.Tags,
		stores.Images,
		imaging.NewProcessor(cfg.Image.Quality, cfg.Image.MaxDimension),
		&sync.Mutex{},
	)

	inputs := make([]service.ProductInput, 0, len(rows))
	for _, r := range rows {
		inputs = append(inputs, service.ProductInput{
			Name:     r.Name,
			Quantity: r.Quantity,
			Price:    r.Price,
			Tags:     r.Tags,
		})
	}

	created, err := productService.ImportProducts(ctx, inputs)
	if err != nil {
		fmt.Printf("Some rows failed: %v\n", err)
	}

	fmt.Println("Import completed!")
	fmt.Printf("Total products imported: %d\n", created)
}
