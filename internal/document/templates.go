package document

import (
	"errors"
	"fmt"

	"pagecraft/internal/block"
)

// ErrUnknownTemplate is returned by FromTemplate for an unregistered name.
var ErrUnknownTemplate = errors.New("unknown template")

const (
	TemplateLanding    = "landing"
	TemplateStorefront = "storefront"
)

// TemplateInfo describes a built-in starting document.
type TemplateInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Blocks      int    `json:"blocks"`
}

type template struct {
	info   TemplateInfo
	page   PageSettings
	blocks func() []block.Block
}

var templates = []template{
	{
		info: TemplateInfo{Name: TemplateLanding, Label: "Landing Page", Description: "Event landing page with sign-up form"},
		page: PageSettings{
			Title:       "Booked Without Boundaries - Landing Page",
			Description: "Transform your coaching business with proven strategies",
		},
		blocks: landingBlocks,
	},
	{
		info: TemplateInfo{Name: TemplateStorefront, Label: "Creator Storefront", Description: "Course creator profile with featured courses"},
		page: PageSettings{
			Title:       "Dr. Sarah Johnson - Creator Storefront",
			Description: "Digital marketing courses by Dr. Sarah Johnson",
		},
		blocks: storefrontBlocks,
	},
}

// Templates lists the built-in templates, default first.
func Templates() []TemplateInfo {
	out := make([]TemplateInfo, 0, len(templates))
	for _, t := range templates {
		info := t.info
		info.Blocks = len(t.blocks())
		out = append(out, info)
	}
	return out
}

// DefaultTemplate returns a fresh document seeded from the landing template.
func DefaultTemplate(opts ...Option) *Document {
	d, err := FromTemplate(TemplateLanding, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTemplate returns a fresh document seeded from the named template.
// An empty name selects the default template.
func FromTemplate(name string, opts ...Option) (*Document, error) {
	if name == "" {
		name = TemplateLanding
	}
	for _, t := range templates {
		if t.info.Name == name {
			return New(t.page, t.blocks(), opts...)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
}

func settings(bg, text, padding string, align block.Alignment) block.Settings {
	return block.Settings{BackgroundColor: bg, TextColor: text, Padding: padding, Alignment: align}
}

func landingBlocks() []block.Block {
	return []block.Block{
		{
			ID:   "hero-1",
			Type: block.TypeHero,
			Content: block.Content{
				"title":     "BOOKED WITHOUT BOUNDARIES",
				"subtitle":  "Master the art of client acquisition and join top coaches who have transformed their business. Take the leap into confidence.",
				"ctaText":   "Claim Your Spot Now",
				"formTitle": "Reserve Your Spot Now",
				"formFields": []any{
					map[string]any{"label": "Full Name", "placeholder": "Enter your full name", "required": true},
					map[string]any{"label": "Best Email", "placeholder": "Enter your email", "required": true},
					map[string]any{"label": "Phone Number", "placeholder": "Enter your phone", "required": true},
				},
			},
			Settings: settings("bg-slate-800", "text-white", "py-20", block.AlignCenter),
		},
		{
			ID:   "text-1",
			Type: block.TypeText,
			Content: block.Content{
				"heading":    "You started off with one dream in mind:",
				"subheading": "To create something meaningful that connects with people...",
				"text": "You told yourself once this takes off - I hope this becomes something I can be proud of.\n\n" +
					"You jumped in with passion, knowing deep down that success in coaching requires skills you can develop.\n\n" +
					"You want to help people transform their lives, but you realized that building a successful coaching business requires more than just good intentions.\n\n" +
					"You looked around and saw other coaches thriving, but felt uncertain about how to replicate their success.\n\n" +
					"You focused on your craft but struggled with the business side - marketing, sales, and client acquisition.\n\n" +
					"You sometimes feel isolated and unsure about the direction to take your coaching practice.",
			},
			Settings: settings("bg-white", "text-gray-800", "py-16", block.AlignCenter),
		},
		{
			ID:   "features-1",
			Type: block.TypeFeatures,
			Content: block.Content{
				"heading": "We are here to support you on every stage of the journey",
				"features": []any{
					map[string]any{"icon": "target", "title": "The 30 Day Challenge", "description": "Daily tools and resources to build your ideal client attraction system with accountability."},
					map[string]any{"icon": "users", "title": "Partnership Program", "description": "Join our exclusive directory where we connect and support motivated coaches."},
					map[string]any{"icon": "trophy", "title": "Proven System", "description": "Run your coaching business with confidence using our tested frameworks."},
				},
			},
			Settings: settings("bg-gray-50", "text-gray-800", "py-16", block.AlignCenter),
		},
		{
			ID:   "testimonials-1",
			Type: block.TypeTestimonials,
			Content: block.Content{
				"heading": "In this conference, you'll learn:",
				"bulletPoints": []any{
					"How to consistently attract your ideal clients without burning out",
					"The psychology behind client decision-making and how to ethically influence",
					"Building authentic relationships that naturally convert to sales",
					"Systems for sustainable business growth while maintaining work-life balance",
				},
			},
			Settings: settings("bg-white", "text-gray-800", "py-16", block.AlignLeft),
		},
		{
			ID:   "cta-1",
			Type: block.TypeCTA,
			Content: block.Content{
				"heading":          "Join Expert Instructors",
				"text":             "Get ready to be in close company with our industry pros and see the transformational journey of our community members as they turn their stories into successful businesses.",
				"ctaText":          "Register Now",
				"hasImage":         true,
				"imageDescription": "Expert instructor presenting to engaged audience",
			},
			Settings: settings("bg-slate-800", "text-white", "py-20", block.AlignCenter),
		},
		{
			ID:   "timeline-1",
			Type: block.TypeTimeline,
			Content: block.Content{
				"heading": "Imagine what your life could be like in the next 100 days",
				"timelineItems": []any{
					map[string]any{"phase": "Days 1-30", "title": "Foundation Building", "description": "Master the fundamentals of client attraction"},
					map[string]any{"phase": "Days 31-60", "title": "System Implementation", "description": "Put proven frameworks into action"},
					map[string]any{"phase": "Days 61-100", "title": "Scale & Optimize", "description": "Grow your business sustainably"},
				},
			},
			Settings: settings("bg-gray-50", "text-gray-800", "py-16", block.AlignCenter),
		},
		{
			ID:   "bonuses-1",
			Type: block.TypeBonuses,
			Content: block.Content{
				"heading":  "🎁 AMAZING GIFTS FOR YOU",
				"subtitle": "When you join today, you get exclusive bonuses worth more than the program investment",
				"bonuses": []any{
					map[string]any{"title": "Exclusive Client/Coach Discovery Access", "value": "$497", "description": "Private community access"},
					map[string]any{"title": "Advanced Marketing Templates", "value": "$297", "description": "Ready-to-use marketing materials"},
					map[string]any{"title": "1-on-1 Strategy Session", "value": "$500", "description": "Personal consultation call"},
				},
			},
			Settings: settings("bg-orange-50", "text-gray-800", "py-16", block.AlignCenter),
		},
		{
			ID:   "pricing-1",
			Type: block.TypePricing,
			Content: block.Content{
				"title": "Booked Without Boundaries Conference Pass",
				"price": "$297",
				"features": []any{
					"Full access to all conference sessions",
					"The 30 Day Challenge toolkit",
					"Partnership Program directory listing",
					"All bonus gifts included",
				},
				"ctaText": "Claim Your Spot Now",
			},
			Settings: settings("bg-white", "text-gray-800", "py-16", block.AlignCenter),
		},
		{
			ID:   "footer-1",
			Type: block.TypeFooter,
			Content: block.Content{
				"heading": "2025 is not over yet! Let's make it count.",
				"text":    "Join us and transform your coaching business today.",
				"ctaText": "Secure Your Spot Now",
			},
			Settings: settings("bg-slate-800", "text-white", "py-16", block.AlignCenter),
		},
	}
}

func storefrontBlocks() []block.Block {
	course := func(id, title, kind, price, students, rating string) block.Block {
		return block.Block{
			ID:   id,
			Type: block.TypePricing,
			Content: block.Content{
				"title":    title,
				"price":    price,
				"features": []any{kind, students + " students", rating + " rating"},
				"ctaText":  "Enroll Now",
			},
			Settings: settings("bg-white", "text-gray-800", "py-12", block.AlignCenter),
		}
	}

	return []block.Block{
		{
			ID:   "hero-1",
			Type: block.TypeHero,
			Content: block.Content{
				"title":     "Dr. Sarah Johnson",
				"subtitle":  "Digital Marketing Expert & Course Creator",
				"ctaText":   "Browse Courses",
				"formTitle": "Get new course announcements",
				"formFields": []any{
					map[string]any{"label": "Best Email", "placeholder": "Enter your email", "required": true},
				},
			},
			Settings: settings("bg-slate-800", "text-white", "py-20", block.AlignLeft),
		},
		{
			ID:   "text-1",
			Type: block.TypeText,
			Content: block.Content{
				"heading":    "About",
				"subheading": "12,453 students · 4.9 rating · 15 courses",
				"text":       "Helping entrepreneurs and businesses master digital marketing through practical, results-driven courses. Over 10 years of experience in scaling online businesses.",
			},
			Settings: settings("bg-white", "text-gray-800", "py-16", block.AlignLeft),
		},
		{
			ID:   "text-2",
			Type: block.TypeText,
			Content: block.Content{
				"heading":    "Featured Courses",
				"subheading": "",
				"text":       "",
			},
			Settings: settings("bg-gray-50", "text-gray-800", "py-8", block.AlignLeft),
		},
		course("pricing-1", "Complete Digital Marketing Mastery", "Course", "$197", "2,341", "4.9"),
		course("pricing-2", "Social Media Strategy Workshop", "Live Training", "$97", "856", "4.8"),
		course("pricing-3", "Email Marketing Automation", "Video Series", "$67", "1,234", "4.9"),
		{
			ID:   "footer-1",
			Type: block.TypeFooter,
			Content: block.Content{
				"heading": "Start learning today",
				"text":    "New courses are added every month.",
				"ctaText": "View All Courses",
			},
			Settings: settings("bg-slate-800", "text-white", "py-16", block.AlignCenter),
		},
	}
}
