// Package static serves the read-only catalogs: past question papers, study
// materials, mess menus and the chatbot's subject table. None of it is user
// data; everything is seeded at process start.
package static

import (
	"context"
	"encoding/json"
	"log"

	"github.com/webstream-tools/pwi-gateway/internal/store"
)

// Link is one hosted document.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Subject is one course in the catalog: its question papers, its notes, and
// the aliases the chatbot matches against.
type Subject struct {
	Name    string   `json:"name"`
	Aliases []string `json:"-"`
	Links   []Link   `json:"links"`
}

// MessDay is one day of a mess menu.
type MessDay struct {
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Snacks    string `json:"snacks"`
	Dinner    string `json:"dinner"`
}

// Catalog holds every static dataset.
type Catalog struct {
	subjects      []Subject
	materials     []Link
	messMenu      []MessDay
	messMenuGirls []MessDay
}

func NewCatalog() *Catalog {
	return &Catalog{
		subjects:      defaultSubjects,
		materials:     defaultMaterials,
		messMenu:      defaultMessMenu,
		messMenuGirls: defaultMessMenuGirls,
	}
}

func (c *Catalog) PYQ() []Subject           { return c.subjects }
func (c *Catalog) Materials() []Link        { return c.materials }
func (c *Catalog) MessMenu() []MessDay      { return c.messMenu }
func (c *Catalog) MessMenuGirls() []MessDay { return c.messMenuGirls }

// WriteSnapshots mirrors each catalog into the cache collection once at
// startup. Failures are logged, not fatal; the in-memory copies still serve.
func (c *Catalog) WriteSnapshots(ctx context.Context, s store.Store) {
	snapshots := map[string]any{
		"pyq":           c.subjects,
		"materials":     c.materials,
		"messMenu":      c.messMenu,
		"messMenuGirls": c.messMenuGirls,
	}
	for key, value := range snapshots {
		encoded, err := json.Marshal(value)
		if err != nil {
			log.Printf("warning: failed to encode %s snapshot: %v", key, err)
			continue
		}
		if err := s.Set(ctx, store.CollCache, key, encoded); err != nil {
			log.Printf("warning: failed to cache %s snapshot: %v", key, err)
		}
	}
}

var defaultSubjects = []Subject{
	{
		Name:    "Java Programming",
		Aliases: []string{"java", "java programming", "oop in java"},
		Links: []Link{
			{Title: "Java PYQ Set", URL: "https://drive.google.com/pyq/java"},
			{Title: "Java Notes", URL: "https://drive.google.com/notes/java"},
		},
	},
	{
		Name:    "JavaScript",
		Aliases: []string{"javascript", "js"},
		Links: []Link{
			{Title: "JavaScript PYQ Set", URL: "https://drive.google.com/pyq/javascript"},
			{Title: "JavaScript Notes", URL: "https://drive.google.com/notes/javascript"},
		},
	},
	{
		Name:    "Database Management Systems",
		Aliases: []string{"dbms", "database", "database management"},
		Links: []Link{
			{Title: "DBMS PYQ Set", URL: "https://drive.google.com/pyq/dbms"},
			{Title: "DBMS Notes", URL: "https://drive.google.com/notes/dbms"},
		},
	},
	{
		Name:    "Data Structures",
		Aliases: []string{"ds", "data structures", "dsa"},
		Links: []Link{
			{Title: "Data Structures PYQ Set", URL: "https://drive.google.com/pyq/ds"},
			{Title: "Data Structures Notes", URL: "https://drive.google.com/notes/ds"},
		},
	},
	{
		Name:    "Operating Systems",
		Aliases: []string{"os", "operating systems"},
		Links: []Link{
			{Title: "Operating Systems PYQ Set", URL: "https://drive.google.com/pyq/os"},
			{Title: "Operating Systems Notes", URL: "https://drive.google.com/notes/os"},
		},
	},
	{
		Name:    "Computer Networks",
		Aliases: []string{"cn", "computer networks", "networks"},
		Links: []Link{
			{Title: "Computer Networks PYQ Set", URL: "https://drive.google.com/pyq/cn"},
			{Title: "Computer Networks Notes", URL: "https://drive.google.com/notes/cn"},
		},
	},
}

var defaultMaterials = []Link{
	{Title: "Semester Syllabus", URL: "https://drive.google.com/materials/syllabus"},
	{Title: "Lab Manuals", URL: "https://drive.google.com/materials/lab-manuals"},
	{Title: "Formula Handbook", URL: "https://drive.google.com/materials/formulas"},
}

var defaultMessMenu = []MessDay{
	{Day: "Monday", Breakfast: "Idli, Sambar", Lunch: "Rice, Dal, Poriyal", Snacks: "Vada, Tea", Dinner: "Chapati, Kurma"},
	{Day: "Tuesday", Breakfast: "Dosa, Chutney", Lunch: "Rice, Rasam, Curd", Snacks: "Bajji, Coffee", Dinner: "Parotta, Gravy"},
	{Day: "Wednesday", Breakfast: "Pongal, Vada", Lunch: "Variety Rice, Appalam", Snacks: "Samosa, Tea", Dinner: "Idiyappam, Kurma"},
	{Day: "Thursday", Breakfast: "Poori, Masala", Lunch: "Rice, Sambar, Poriyal", Snacks: "Cake, Coffee", Dinner: "Chapati, Channa"},
	{Day: "Friday", Breakfast: "Idli, Vada, Sambar", Lunch: "Rice, Kara Kuzhambu", Snacks: "Sundal, Tea", Dinner: "Dosa, Chutney"},
	{Day: "Saturday", Breakfast: "Upma, Chutney", Lunch: "Rice, Dal, Pickle", Snacks: "Biscuit, Tea", Dinner: "Parotta, Kurma"},
	{Day: "Sunday", Breakfast: "Pongal, Chutney", Lunch: "Briyani, Raita", Snacks: "Murukku, Coffee", Dinner: "Chapati, Paneer"},
}

var defaultMessMenuGirls = []MessDay{
	{Day: "Monday", Breakfast: "Dosa, Sambar", Lunch: "Rice, Dal, Kootu", Snacks: "Vada, Tea", Dinner: "Chapati, Gravy"},
	{Day: "Tuesday", Breakfast: "Idli, Chutney", Lunch: "Rice, Rasam, Poriyal", Snacks: "Bonda, Coffee", Dinner: "Idiyappam, Kurma"},
	{Day: "Wednesday", Breakfast: "Poori, Masala", Lunch: "Variety Rice, Curd", Snacks: "Samosa, Tea", Dinner: "Parotta, Channa"},
	{Day: "Thursday", Breakfast: "Pongal, Vada", Lunch: "Rice, Sambar, Appalam", Snacks: "Cake, Coffee", Dinner: "Dosa, Chutney"},
	{Day: "Friday", Breakfast: "Upma, Chutney", Lunch: "Rice, Kara Kuzhambu", Snacks: "Sundal, Tea", Dinner: "Chapati, Kurma"},
	{Day: "Saturday", Breakfast: "Idli, Sambar", Lunch: "Rice, Dal, Pickle", Snacks: "Biscuit, Tea", Dinner: "Noodles, Gravy"},
	{Day: "Sunday", Breakfast: "Dosa, Chutney", Lunch: "Briyani, Raita", Snacks: "Murukku, Coffee", Dinner: "Chapati, Paneer"},
}
