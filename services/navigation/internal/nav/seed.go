package nav

import (
	"github.com/civicms/pkg/logger"
	"github.com/civicms/services/navigation/internal/model"
	"gorm.io/gorm"
)

// Seed fills an empty nav table with the default municipal menus.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.NavEntry{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	entries := []model.NavEntry{
		{Label: "Home", Href: "/", MenuGroup: "main", Sort: 1, Active: true},
		{Label: "News", Href: "/news", MenuGroup: "main", Sort: 2, Active: true},
		{Label: "Services", Href: "/services", MenuGroup: "main", Sort: 3, Active: true},
		{Label: "Governance", Href: "/governance", MenuGroup: "main", Sort: 4, Active: true},
		{Label: "Tourism", Href: "/tourism", MenuGroup: "main", Sort: 5, Active: true},
		{Label: "Contact", Href: "/contact", MenuGroup: "main", Sort: 6, Active: true},
		{Label: "Transparency", Href: "/transparency", MenuGroup: "footer", Sort: 1, Active: true},
		{Label: "Bids and Awards", Href: "/bac", MenuGroup: "footer", Sort: 2, Active: true},
		{Label: "Privacy Policy", Href: "/privacy", MenuGroup: "footer", Sort: 3, Active: true},
	}
	if err := db.Create(&entries).Error; err != nil {
		return err
	}

	// second-level items under Services
	var services model.NavEntry
	if err := db.Where("label = ? AND menu_group = ?", "Services", "main").First(&services).Error; err == nil {
		children := []model.NavEntry{
			{Label: "Business Permits", Href: "/services/permits", ParentID: &services.ID, MenuGroup: "main", Sort: 1, Active: true},
			{Label: "Civil Registry", Href: "/services/civil-registry", ParentID: &services.ID, MenuGroup: "main", Sort: 2, Active: true},
			{Label: "Health Services", Href: "/services/health", ParentID: &services.ID, MenuGroup: "main", Sort: 3, Active: true},
		}
		if err := db.Create(&children).Error; err != nil {
			return err
		}
	}

	logger.Info("seeded default navigation menus")
	return nil
}
