package models

import (
	"log"

	"github.com/siamcraft/mfginv_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&StockPool{}, &StockLot{},
		&Product{}, &BOMEntry{},
		&Order{}, &OrderLine{},
		&StockForecast{},
		&FinancialPostingRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
