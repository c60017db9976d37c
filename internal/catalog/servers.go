// Package catalog содержит статический список игровых серверов GTA5RP.
package catalog

import "github.com/mmeshcher/virtmarket/internal/model"

var servers = []model.Server{
	{ID: 1, Name: "Downtown", SellPrice: 690, BuyPrice: 320},
	{ID: 2, Name: "StrawBerry", SellPrice: 690, BuyPrice: 320},
	{ID: 3, Name: "VineWood", SellPrice: 690, BuyPrice: 320},
	{ID: 4, Name: "BlackBerry", SellPrice: 720, BuyPrice: 334},
	{ID: 5, Name: "Insquad", SellPrice: 700, BuyPrice: 325},
	{ID: 6, Name: "Sunrise", SellPrice: 800, BuyPrice: 372},
	{ID: 7, Name: "Rainbow", SellPrice: 820, BuyPrice: 381},
	{ID: 8, Name: "Richman", SellPrice: 790, BuyPrice: 367},
	{ID: 9, Name: "Eclipse", SellPrice: 420, BuyPrice: 195},
	{ID: 10, Name: "LaMesa", SellPrice: 740, BuyPrice: 344},
	{ID: 11, Name: "Burton", SellPrice: 700, BuyPrice: 325},
	{ID: 12, Name: "Rockford", SellPrice: 860, BuyPrice: 399},
	{ID: 13, Name: "Alta", SellPrice: 840, BuyPrice: 390},
	{ID: 14, Name: "Del Perro", SellPrice: 750, BuyPrice: 348},
	{ID: 15, Name: "Davis", SellPrice: 790, BuyPrice: 367},
	{ID: 16, Name: "Harmony", SellPrice: 650, BuyPrice: 302},
	{ID: 17, Name: "Redwood", SellPrice: 550, BuyPrice: 255},
	{ID: 18, Name: "Hawick", SellPrice: 750, BuyPrice: 348},
	{ID: 19, Name: "Grapeseed", SellPrice: 740, BuyPrice: 344},
	{ID: 20, Name: "Murrieta", SellPrice: 580, BuyPrice: 269},
	{ID: 21, Name: "Vespucci", SellPrice: 460, BuyPrice: 213},
	{ID: 22, Name: "Milton", SellPrice: 700, BuyPrice: 325},
	{ID: 23, Name: "La Puerta", SellPrice: 820, BuyPrice: 381},
}

// Servers возвращает копию каталога серверов.
func Servers() []model.Server {
	res := make([]model.Server, len(servers))
	copy(res, servers)
	return res
}

// Lookup ищет сервер по идентификатору.
func Lookup(id int) (model.Server, bool) {
	for _, s := range servers {
		if s.ID == id {
			return s, true
		}
	}
	return model.Server{}, false
}
