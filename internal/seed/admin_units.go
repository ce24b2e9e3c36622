package seed

import (
	"mfl/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInRegion is one branch of the permanent administrative hierarchy.
type BuiltInRegion struct {
	Name      string
	Districts map[string][]string // district name -> subcounties
}

// BuiltInRegions defines the administrative hierarchy seeded into every
// environment. Reference data, not demo data: the workflow cannot resolve
// request scopes without it.
var BuiltInRegions = []BuiltInRegion{
	{Name: "Central", Districts: map[string][]string{
		"Kampala":  {"Nakawa", "Makindye", "Rubaga", "Kawempe", "Central Division"},
		"Wakiso":   {"Entebbe", "Nansana", "Kira"},
		"Mukono":   {"Mukono Central", "Goma"},
		"Masaka":   {"Nyendo", "Kimaanya"},
	}},
	{Name: "Eastern", Districts: map[string][]string{
		"Jinja":   {"Jinja Central", "Walukuba", "Mpumudde"},
		"Mbale":   {"Industrial Division", "Wanale", "Northern Division"},
		"Soroti":  {"Eastern Division", "Western Division"},
		"Tororo":  {"Tororo Municipality", "Mulanda"},
	}},
	{Name: "Northern", Districts: map[string][]string{
		"Gulu":   {"Laroo", "Bardege", "Pece"},
		"Lira":   {"Adyel", "Ojwina", "Railway"},
		"Arua":   {"Arua Hill", "River Oli"},
		"Kitgum": {"Kitgum Matidi", "Pager"},
	}},
	{Name: "Western", Districts: map[string][]string{
		"Mbarara":      {"Kakoba", "Nyamitanga", "Kamukuzi"},
		"Fort Portal":  {"Central Division", "East Division"},
		"Hoima":        {"Hoima East", "Hoima West"},
		"Kabale":       {"Central Division", "Northern Division", "Southern Division"},
	}},
}

// AdminUnits seeds the administrative hierarchy idempotently.
func AdminUnits(db *gorm.DB) error {
	for _, item := range BuiltInRegions {
		err := db.Transaction(func(tx *gorm.DB) error {
			region := models.Region{Name: item.Name}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&region).Error; err != nil {
				return err
			}
			if region.ID == 0 {
				if err := tx.Where("name = ?", item.Name).First(&region).Error; err != nil {
					return err
				}
			}

			for districtName, subcounties := range item.Districts {
				district := models.District{Name: districtName, RegionID: region.ID}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "region_id"}, {Name: "name"}},
					DoNothing: true,
				}).Create(&district).Error; err != nil {
					return err
				}
				if district.ID == 0 {
					if err := tx.Where("region_id = ? AND name = ?", region.ID, districtName).First(&district).Error; err != nil {
						return err
					}
				}

				for _, subcountyName := range subcounties {
					subcounty := models.Subcounty{Name: subcountyName, DistrictID: district.ID}
					if err := tx.Clauses(clause.OnConflict{
						Columns:   []clause.Column{{Name: "district_id"}, {Name: "name"}},
						DoNothing: true,
					}).Create(&subcounty).Error; err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
