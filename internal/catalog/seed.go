package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/notions-storefront/internal/domain/class"
	"github.com/xenking/notions-storefront/internal/domain/product"
)

// Products returns a fresh copy of the shop's product list.
func Products() []product.Product {
	return []product.Product{
		{
			ID: 1, Name: "Floral Scrapbook Paper Pack", Price: price("12.99"), Category: "paper",
			Description: "Beautiful floral patterns perfect for spring layouts. Includes 24 double-sided sheets.",
			Badge:       "New",
		},
		{
			ID: 2, Name: "Craft Scissors Set", Price: price("18.50"), Category: "tools",
			Description: "Precision cutting scissors with comfortable grip. Set of 6 decorative edge patterns.",
		},
		{
			ID: 3, Name: "Washi Tape Collection - Pastels", Price: price("9.99"), Category: "embellishments",
			Description: "Set of 10 pastel washi tapes in various widths and patterns.",
			Badge:       "Popular",
		},
		{
			ID: 4, Name: "Rubber Stamp Kit - Seasons", Price: price("24.99"), Category: "stamps",
			Description: "Four-season stamp collection with 20 detailed designs.",
		},
		{
			ID: 5, Name: "Diamond Art Kit - Sunflower", Price: price("15.99"), Category: "diamond-art",
			Description: "Complete diamond painting kit with premium drills. 12x16 inch canvas.",
			Badge:       "Sale",
		},
		{
			ID: 6, Name: "Cardstock Variety Pack", Price: price("14.99"), Category: "paper",
			Description: "50 sheets of premium cardstock in 25 colors. Perfect for card making.",
		},
		{
			ID: 7, Name: "Embossing Powder Set", Price: price("22.00"), Category: "embellishments",
			Description: "12 metallic and glitter embossing powders for stunning effects.",
		},
		{
			ID: 8, Name: "Die Cut Machine - Starter", Price: price("89.99"), Category: "tools",
			Description: "Compact die cutting machine perfect for beginners. Includes starter die set.",
			Badge:       "Best Seller",
		},
		{
			ID: 9, Name: "Valentine Card Kit", Price: price("16.99"), Category: "kits",
			Description: "Make 12 beautiful Valentine cards. All materials included.",
			Badge:       "Seasonal",
		},
		{
			ID: 10, Name: "Adhesive Runner Refills - 3 Pack", Price: price("11.99"), Category: "adhesives",
			Description: "Permanent adhesive runner refills. Compatible with most runners.",
		},
		{
			ID: 11, Name: "Alcohol Ink Set - Jewel Tones", Price: price("19.99"), Category: "inks",
			Description: "Vibrant jewel-toned alcohol inks. Set of 9 colors.",
		},
		{
			ID: 12, Name: "Porch Leaner Blank - 4ft", Price: price("25.00"), Category: "wood",
			Description: "Unfinished wood porch leaner. Ready for your creative touch.",
		},
	}
}

// Classes returns a fresh copy of the class schedule.
func Classes() []class.Offering {
	return []class.Offering{
		{
			ID: 1, Name: "Porch Leaner Workshop", Cost: price("50"),
			Dates: []string{"01/19/26"}, Sessions: 1,
			Description: "We are excited to be partnering with Nina's Notions again to offer a new class! " +
				"Registration is now open for our Porch Leaner Workshop on Monday, January 19th at 6:00pm. " +
				"Must be registered through the City of St Johns Recreation Department.",
			Link: "https://stjohnsmi.myrec.com",
		},
		{
			ID: 2, Name: "Diamond Art & Social Hour with Sandy - Valentine Gnome", Cost: price("10"),
			Dates: []string{"01/21/26"}, Sessions: 1,
			Description: "Create a festive Valentine Gnome while relaxing, chatting, and crafting together. " +
				"All skill levels welcome—come create and connect.",
		},
		{
			ID: 3, Name: "Monthly Scrapbooking Workshop", Cost: price("15"),
			Dates: []string{"01/21/26", "02/18/26", "03/18/26", "04/15/26"}, Sessions: 1,
			Description: "Create a two-page scrapbook layout each month using Nina's Notions equipment—just bring your adhesives. " +
				"Attend monthly and by Christmas you'll have a beautiful handmade gift for someone special. " +
				"All skill levels welcome.",
		},
		{
			ID: 4, Name: "Cards for Kids", Cost: decimal.Zero,
			Dates: []string{"01/22/26", "01/24/26", "01/29/26"}, Sessions: 1,
			Description: "Weekly Craft Workshop. Thursdays at 1 PM, starting January 15th. Just bring your creativity! " +
				"Use Nina's tools, paper, stamps, and dies. Join us weekly for hands-on crafting, fun projects, " +
				"and a welcoming creative space. All cards collected will be sent to Cards for Kids to brighten " +
				"a child's day! All skill levels are welcome!",
		},
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
