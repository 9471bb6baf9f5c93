package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/internal/db"
	"github.com/eason8811/international-shopping-sub004/pkg/money"
	"github.com/xuri/excelize/v2"
)

// SKU 카탈로그 XLSX 임포트 도구
// 열 순서: sku_code | name | currency | unit_price(주 단위) | initial_stock
func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Repository 생성
	invRepo := repository.NewInventoryRepository(db.GetDB())

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	skus, err := readSkusFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total SKUs to import: %d\n", len(skus))

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	imported := 0
	skipped := 0
	for i := range skus {
		if _, err := invRepo.FindSkuByCode(skus[i].SkuCode); err == nil {
			skipped++
			continue
		}
		if err := invRepo.CreateSku(&skus[i]); err != nil {
			log.Fatalf("Failed to create SKU %s: %v", skus[i].SkuCode, err)
		}
		imported++
	}

	fmt.Printf("Import finished: %d created, %d skipped (already present)\n", imported, skipped)
}

func readSkusFromXLSX(filePath string) ([]model.Sku, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheet)
	}

	skus := make([]model.Sku, 0, len(rows)-1)
	for i, row := range rows[1:] { // 첫 행은 헤더
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, got %d", i+2, len(row))
		}

		skuCode := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		currency := strings.ToUpper(strings.TrimSpace(row[2]))
		if skuCode == "" || name == "" {
			return nil, fmt.Errorf("row %d: sku_code and name are required", i+2)
		}

		price, err := money.FromMajorString(currency, strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid unit price %q: %w", i+2, row[3], err)
		}

		stock, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("row %d: invalid initial stock %q", i+2, row[4])
		}

		skus = append(skus, model.Sku{
			SkuCode:      skuCode,
			Name:         name,
			UnitPrice:    price.Amount,
			Currency:     price.Currency,
			InitialStock: stock,
		})
	}

	return skus, nil
}
