package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/model"
)

var historyDates = []string{"2023-01-01", "2023-03-01", "2023-05-01", "2023-07-01", "2023-09-01", "2023-11-01"}

func car(id, name, brand, modelName string, year int, image string, prices ...int64) model.Car {
	history := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		history[i] = model.PricePoint{Date: historyDates[i], Price: decimal.NewFromInt(p)}
	}
	return model.Car{
		ID:           id,
		Name:         name,
		Brand:        brand,
		Model:        modelName,
		Year:         year,
		ImageURL:     image,
		CurrentPrice: history[len(history)-1].Price,
		PriceHistory: history,
	}
}

// SeedCars is the built-in car market.
func SeedCars() []model.Car {
	return []model.Car{
		car("1", "Porsche 911 GT3", "Porsche", "911 GT3", 2022, "https://images.unsplash.com/photo-1503376780353-7e6692767b70",
			160000, 163000, 170000, 172500, 175000, 178500),
		car("2", "Ferrari SF90 Stradale", "Ferrari", "SF90 Stradale", 2021, "https://images.unsplash.com/photo-1592198084033-aade902d1aae",
			335000, 331000, 320000, 318000, 312000, 305000),
		car("3", "Lamborghini Huracan EVO", "Lamborghini", "Huracan EVO", 2021, "https://images.unsplash.com/photo-1544636331-e26879cd4d9b",
			285000, 280000, 282000, 276000, 271000, 268000),
		car("4", "McLaren 720S", "McLaren", "720S", 2020, "https://images.unsplash.com/photo-1621135802920-133df287f89c",
			240000, 244000, 249000, 251000, 258000, 262000),
		car("5", "Ferrari 458 Italia", "Ferrari", "458 Italia", 2015, "https://images.unsplash.com/photo-1583121274602-3e2820c69888",
			190000, 194000, 196000, 199000, 203000, 205000),
		car("6", "Porsche 718 Cayman GT4", "Porsche", "718 Cayman GT4", 2023, "https://images.unsplash.com/photo-1611821064430-0d40291d0f0b",
			110000, 110000, 109000, 111000, 112000, 112000),
		car("7", "Aston Martin DB11", "Aston Martin", "DB11", 2020, "https://images.unsplash.com/photo-1600712242805-5f78671b24da",
			205000, 198000, 192000, 187000, 183000, 180000),
		car("8", "Mercedes-AMG GT Black Series", "Mercedes-AMG", "GT Black Series", 2021, "https://images.unsplash.com/photo-1618843479313-40f8afb4b4d8",
			390000, 402000, 415000, 420000, 431000, 445000),
	}
}

// Default returns a Catalog over SeedCars.
func Default() *Catalog {
	c, err := New(SeedCars())
	if err != nil {
		panic(err)
	}
	return c
}
