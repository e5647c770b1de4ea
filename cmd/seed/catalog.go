package main

type categorySeed struct {
	Name         string
	Slug         string
	Description  string
	DisplayOrder int
}

type productSeed struct {
	SKU              string
	Name             string
	Slug             string
	Description      string
	ShortDescription string
	Price            string
	CompareAtPrice   string
	Stock            int
	GradientFrom     string
	GradientTo       string
	Featured         bool
	Bestseller       bool
	DisplayOrder     int
	ProteinGrams     int
	Calories         int
	GlutenFree       bool
	DairyFree        bool
	Vegan            bool
	KetoFriendly     bool
	CategorySlug     string
}

var sampleCategories = []categorySeed{
	{Name: "Protein Cupcakes", Slug: "protein-cupcakes", Description: "Delicious high-protein cupcakes made with real ingredients.", DisplayOrder: 1},
	{Name: "Protein Brownies", Slug: "protein-brownies", Description: "Rich, fudgy brownies packed with protein.", DisplayOrder: 2},
	{Name: "Protein Cookies", Slug: "protein-cookies", Description: "Soft-baked protein cookies in amazing flavors.", DisplayOrder: 3},
	{Name: "Protein Bars", Slug: "protein-bars", Description: "On-the-go protein bars for busy lifestyles.", DisplayOrder: 4},
}

var sampleProducts = []productSeed{
	{
		SKU: "CUP-BL-001", Name: "Blueberry Lemon Protein Cupcake", Slug: "blueberry-lemon-protein-cupcake",
		Description:      "A zesty lemon cupcake bursting with fresh blueberries, topped with a light cream cheese frosting. Each cupcake delivers 15g of protein while satisfying your sweet cravings guilt-free.",
		ShortDescription: "Zesty lemon with fresh blueberries",
		Price:            "6.99", Stock: 24, GradientFrom: "#6366F1", GradientTo: "#8B5CF6",
		Featured: true, Bestseller: true, DisplayOrder: 1, ProteinGrams: 15, Calories: 180,
		GlutenFree: true, CategorySlug: "protein-cupcakes",
	},
	{
		SKU: "CUP-PM-002", Name: "Pistachio Matcha Protein Cupcake", Slug: "pistachio-matcha-protein-cupcake",
		Description:      "An earthy matcha base with crushed pistachios throughout, finished with a matcha cream frosting. This sophisticated cupcake offers 14g of protein and antioxidant benefits.",
		ShortDescription: "Earthy matcha with crushed pistachios",
		Price:            "7.49", Stock: 18, GradientFrom: "#39C78B", GradientTo: "#E1CE71",
		Featured: true, DisplayOrder: 2, ProteinGrams: 14, Calories: 175,
		GlutenFree: true, KetoFriendly: true, CategorySlug: "protein-cupcakes",
	},
	{
		SKU: "CUP-AC-003", Name: "Apple Cinnamon Protein Cupcake", Slug: "apple-cinnamon-protein-cupcake",
		Description:      "Warm cinnamon spice meets chunks of fresh apple in this comforting cupcake. Topped with a maple cream frosting for that perfect fall treat with 13g of protein.",
		ShortDescription: "Warm cinnamon with fresh apple chunks",
		Price:            "5.99", CompareAtPrice: "6.99", Stock: 30, GradientFrom: "#F59E0B", GradientTo: "#B45309",
		Bestseller: true, DisplayOrder: 3, ProteinGrams: 13, Calories: 170,
		GlutenFree: true, DairyFree: true, CategorySlug: "protein-cupcakes",
	},
	{
		SKU: "BRW-DC-001", Name: "Double Chocolate Protein Brownie", Slug: "double-chocolate-protein-brownie",
		Description:      "Intensely chocolatey with dark chocolate chips throughout. This fudgy brownie delivers 20g of protein and satisfies even the strongest chocolate cravings.",
		ShortDescription: "Intensely fudgy with dark chocolate chips",
		Price:            "5.49", Stock: 36, GradientFrom: "#44403C", GradientTo: "#1C1917",
		Featured: true, Bestseller: true, DisplayOrder: 1, ProteinGrams: 20, Calories: 220,
		GlutenFree: true, KetoFriendly: true, CategorySlug: "protein-brownies",
	},
	{
		SKU: "BRW-PB-002", Name: "Peanut Butter Swirl Brownie", Slug: "peanut-butter-swirl-brownie",
		Description:      "Rich chocolate brownie with ribbons of creamy peanut butter swirled throughout. A perfect balance of flavors with 22g of protein per serving.",
		ShortDescription: "Chocolate with creamy peanut butter swirls",
		Price:            "5.99", Stock: 28, GradientFrom: "#92400E", GradientTo: "#451A03",
		DisplayOrder: 2, ProteinGrams: 22, Calories: 240,
		GlutenFree: true, DairyFree: true, Vegan: true, CategorySlug: "protein-brownies",
	},
	{
		SKU: "COO-CC-001", Name: "Chocolate Chip Protein Cookie", Slug: "chocolate-chip-protein-cookie",
		Description:      "Classic soft-baked chocolate chip cookie loaded with semi-sweet chocolate chips. Each cookie contains 16g of protein and tastes like the real thing.",
		ShortDescription: "Classic soft-baked with chocolate chips",
		Price:            "3.99", Stock: 48, GradientFrom: "#D97706", GradientTo: "#78350F",
		Bestseller: true, DisplayOrder: 1, ProteinGrams: 16, Calories: 160,
		GlutenFree: true, CategorySlug: "protein-cookies",
	},
	{
		SKU: "COO-OA-002", Name: "Oatmeal Raisin Protein Cookie", Slug: "oatmeal-raisin-protein-cookie",
		Description:      "Hearty oatmeal cookie studded with plump raisins and a hint of cinnamon. A nostalgic treat with 14g of protein per cookie.",
		ShortDescription: "Hearty oatmeal with plump raisins",
		Price:            "3.49", CompareAtPrice: "3.99", Stock: 40, GradientFrom: "#A16207", GradientTo: "#713F12",
		DisplayOrder: 2, ProteinGrams: 14, Calories: 150,
		DairyFree: true, Vegan: true, CategorySlug: "protein-cookies",
	},
	{
		SKU: "COO-SN-003", Name: "Snickerdoodle Protein Cookie", Slug: "snickerdoodle-protein-cookie",
		Description:      "Buttery cookie rolled in cinnamon sugar with a soft, chewy center. This nostalgic favorite delivers 15g of protein.",
		ShortDescription: "Cinnamon sugar with soft chewy center",
		Price:            "3.99", Stock: 35, GradientFrom: "#FBBF24", GradientTo: "#D97706",
		Featured: true, DisplayOrder: 3, ProteinGrams: 15, Calories: 155,
		GlutenFree: true, KetoFriendly: true, CategorySlug: "protein-cookies",
	},
	{
		SKU: "BAR-CB-001", Name: "Chocolate Brownie Protein Bar", Slug: "chocolate-brownie-protein-bar",
		Description:      "Dense, chewy bar with rich brownie flavor and chocolate coating. Perfect for post-workout with 25g of protein.",
		ShortDescription: "Rich brownie flavor with chocolate coating",
		Price:            "4.49", Stock: 60, GradientFrom: "#3F3F46", GradientTo: "#18181B",
		Bestseller: true, DisplayOrder: 1, ProteinGrams: 25, Calories: 280,
		GlutenFree: true, KetoFriendly: true, CategorySlug: "protein-bars",
	},
	{
		SKU: "BAR-VP-002", Name: "Vanilla Peanut Butter Bar", Slug: "vanilla-peanut-butter-bar",
		Description:      "Creamy vanilla base with a peanut butter center, dipped in white chocolate. Each bar packs 24g of protein.",
		ShortDescription: "Vanilla with peanut butter center",
		Price:            "4.49", Stock: 55, GradientFrom: "#FEF3C7", GradientTo: "#92400E",
		DisplayOrder: 2, ProteinGrams: 24, Calories: 270,
		GlutenFree: true, DairyFree: true, Vegan: true, CategorySlug: "protein-bars",
	},
	{
		SKU: "BAR-MC-003", Name: "Mint Chocolate Protein Bar", Slug: "mint-chocolate-protein-bar",
		Description:      "Cool mint meets rich dark chocolate in this refreshing protein bar. Contains 23g of protein for sustained energy.",
		ShortDescription: "Cool mint with dark chocolate",
		Price:            "3.99", CompareAtPrice: "4.49", Stock: 0, GradientFrom: "#10B981", GradientTo: "#064E3B",
		DisplayOrder: 3, ProteinGrams: 23, Calories: 260,
		GlutenFree: true, KetoFriendly: true, CategorySlug: "protein-bars",
	},
}
