//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package generate

import (
	"fmt"

	"github.com/globalcart/globalcart-warehouse/internal/datagen"
)

// categorySpec ties an L2 category to its price band and brand pool.
// The fixed taxonomy keeps price and cost internally consistent: cost is
// always list price divided by a bounded markup, so gross margin stays
// positive.
type categorySpec struct {
	l1       string
	l2       string
	priceMin float64
	priceMax float64
	brands   []string
	kinds    []string
	naming   namingStyle
}

type namingStyle int

const (
	nameKindOnly namingStyle = iota // "<brand> <kind>"
	nameMobile                      // "<brand> <model> 5G Smartphone (<spec>)"
	nameLaptop                      // "<brand> <series> <spec> Laptop"
	nameAudio                       // "<brand> <spec> <kind>"
	nameTV                          // "<brand> <size> 4K Smart TV"
)

var mobileSpecs = []string{"64GB", "128GB", "256GB"}
var laptopSeries = []string{"Inspiron", "Pavilion", "IdeaPad", "VivoBook", "Aspire", "MacBook"}
var laptopSpecs = []string{"i5", "i7", "Ryzen 5", "Ryzen 7"}
var audioSpecs = []string{"Wireless", "Bluetooth", "Noise Cancelling"}
var tvSizes = []string{"43-inch", "50-inch", "55-inch", "65-inch"}

// catalog is the full product taxonomy: L1 -> L2 -> (price band, brands).
var catalog = []categorySpec{
	{l1: "ELECTRONICS", l2: "MOBILE", priceMin: 8999, priceMax: 89999, naming: nameMobile,
		brands: []string{"Samsung", "Apple", "Xiaomi", "OnePlus", "Motorola", "Realme"}},
	{l1: "ELECTRONICS", l2: "LAPTOP", priceMin: 29999, priceMax: 179999, naming: nameLaptop,
		brands: []string{"Dell", "HP", "Lenovo", "ASUS", "Acer", "Apple"}},
	{l1: "ELECTRONICS", l2: "AUDIO", priceMin: 999, priceMax: 29999, naming: nameAudio,
		brands: []string{"Sony", "JBL", "boAt", "Bose", "Sennheiser"},
		kinds:  []string{"Earbuds", "Headphones", "Speaker", "Soundbar"}},
	{l1: "ELECTRONICS", l2: "TV", priceMin: 19999, priceMax: 149999, naming: nameTV,
		brands: []string{"Samsung", "LG", "Sony", "TCL", "Mi"}},
	{l1: "ELECTRONICS", l2: "ACCESSORIES", priceMin: 299, priceMax: 9999,
		brands: []string{"Anker", "Spigen", "boAt", "Portronics", "Mi"},
		kinds:  []string{"Power Bank", "USB-C Charger", "Wireless Mouse", "Keyboard", "Smartwatch", "Fitness Band"}},
	{l1: "APPLIANCES", l2: "KITCHEN", priceMin: 1499, priceMax: 49999,
		brands: []string{"Philips", "Prestige", "Bajaj", "Havells", "Morphy Richards"},
		kinds:  []string{"Air Fryer", "Mixer Grinder", "Induction Cooktop", "Microwave", "Coffee Maker"}},
	{l1: "APPLIANCES", l2: "COOLING", priceMin: 24999, priceMax: 89999,
		brands: []string{"LG", "Samsung", "Whirlpool", "Haier", "Panasonic"},
		kinds:  []string{"Refrigerator", "Air Conditioner", "Air Cooler"}},
	{l1: "APPLIANCES", l2: "LAUNDRY", priceMin: 18999, priceMax: 69999,
		brands: []string{"IFB", "LG", "Samsung", "Bosch", "Whirlpool"},
		kinds:  []string{"Washing Machine", "Dryer"}},
	{l1: "HOME", l2: "FURNITURE", priceMin: 1999, priceMax: 59999,
		brands: []string{"IKEA", "Urban Ladder", "Home Centre", "Wakefit"},
		kinds:  []string{"Office Chair", "Study Table", "Sofa", "Bookshelf", "Bed"}},
	{l1: "HOME", l2: "DECOR", priceMin: 299, priceMax: 12999,
		brands: []string{"IKEA", "Home Centre", "DecoCraft", "Urban Ladder"},
		kinds:  []string{"Wall Art", "Table Lamp", "Rug", "Curtains", "Clock"}},
	{l1: "HOME", l2: "BED_BATH", priceMin: 199, priceMax: 7999,
		brands: []string{"Spaces", "Bombay Dyeing", "D'Decor", "Wakefit"},
		kinds:  []string{"Bedsheet Set", "Pillow", "Comforter", "Towel Set"}},
	{l1: "BEAUTY", l2: "SKINCARE", priceMin: 149, priceMax: 2499,
		brands: []string{"Nivea", "Neutrogena", "Minimalist", "Mamaearth", "L'Oreal"},
		kinds:  []string{"Face Wash", "Moisturizer", "Sunscreen", "Serum"}},
	{l1: "BEAUTY", l2: "HAIRCARE", priceMin: 129, priceMax: 1999,
		brands: []string{"Dove", "Tresemme", "L'Oreal", "Head & Shoulders", "WOW"},
		kinds:  []string{"Shampoo", "Conditioner", "Hair Oil", "Hair Mask"}},
	{l1: "BEAUTY", l2: "MAKEUP", priceMin: 199, priceMax: 2999,
		brands: []string{"Lakme", "Maybelline", "Nykaa", "L'Oreal"},
		kinds:  []string{"Lipstick", "Foundation", "Mascara", "Eyeliner"}},
	{l1: "GROCERY", l2: "STAPLES", priceMin: 99, priceMax: 1999,
		brands: []string{"Tata", "Aashirvaad", "Fortune", "Saffola", "Patanjali"},
		kinds:  []string{"Basmati Rice", "Atta", "Toor Dal", "Olive Oil", "Ghee"}},
	{l1: "GROCERY", l2: "SNACKS", priceMin: 10, priceMax: 399,
		brands: []string{"Lay's", "Haldiram's", "Kurkure", "Britannia", "Parle"},
		kinds:  []string{"Chips", "Namkeen", "Biscuits", "Chocolate"}},
	{l1: "GROCERY", l2: "BEVERAGES", priceMin: 20, priceMax: 999,
		brands: []string{"Nescafe", "Tata Tea", "Bru", "Red Bull", "Paper Boat"},
		kinds:  []string{"Coffee", "Tea", "Energy Drink", "Juice"}},
}

// discountBoostCategories get an extra per-line discount during any
// period.
var discountBoostCategories = map[string]bool{
	"APPAREL": true,
	"BEAUTY":  true,
}

func productName(f *datagen.Faker, spec categorySpec, brand string) string {
	switch spec.naming {
	case nameMobile:
		series := datagen.Choose(f, []string{"A", "M", "S", "X"})
		return fmt.Sprintf("%s %s%d 5G Smartphone (%s)",
			brand, series, f.Int(10, 98), datagen.Choose(f, mobileSpecs))
	case nameLaptop:
		return fmt.Sprintf("%s %s %s Laptop",
			brand, datagen.Choose(f, laptopSeries), datagen.Choose(f, laptopSpecs))
	case nameAudio:
		return fmt.Sprintf("%s %s %s",
			brand, datagen.Choose(f, audioSpecs), datagen.Choose(f, spec.kinds))
	case nameTV:
		return fmt.Sprintf("%s %s 4K Smart TV", brand, datagen.Choose(f, tvSizes))
	default:
		return fmt.Sprintf("%s %s", brand, datagen.Choose(f, spec.kinds))
	}
}
