package converter

import (
	"fmt"
	"log"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// GetDescriptionConverterRules turns feed item HTML into plain text. Images
// are dropped since every item carries its own image.
func GetDescriptionConverterRules() []md.Rule {
	return []md.Rule{
		{
			Filter:      []string{"h1", "h2", "h3", "h4", "h5", "h6", "b", "strong", "i", "em", "code"},
			Replacement: plainContent,
		},
		{
			Filter: []string{"img", "figure", "picture"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				return md.String("")
			},
		},
		converterRuleA,
	}
}

func plainContent(content string, selection *goquery.Selection, opt *md.Options) *string {
	return md.String(strings.TrimSpace(content))
}

var converterRuleA = md.Rule{
	Filter: []string{"a"},
	AdvancedReplacement: func(content string, selec *goquery.Selection, opt *md.Options) (md.AdvancedResult, bool) {
		// without a usable href only the content of the link is kept
		href, ok := selec.Attr("href")
		if !ok || strings.TrimSpace(href) == "" || strings.TrimSpace(href) == "#" {
			return md.AdvancedResult{
				Markdown: content,
			}, false
		}

		href = opt.GetAbsoluteURL(selec, href, "")
		content = md.EscapeMultiLine(content)

		if strings.TrimSpace(content) == "" {
			content = selec.AttrOr("title", selec.AttrOr("aria-label", ""))
		}

		if content == "" {
			return md.AdvancedResult{
				Markdown: "",
			}, false
		}

		return md.AdvancedResult{
			Markdown: fmt.Sprintf("%s (%s)", content, href),
		}, false
	},
}

// HTMLToText converts s with the description rules, falling back to
// stripping every tag when the conversion fails.
func HTMLToText(s string) string {
	mdConverter := md.NewConverter("", true, nil)
	mdConverter.AddRules(GetDescriptionConverterRules()...)

	converted, err := mdConverter.ConvertString(s)
	if err != nil {
		log.Printf("[WARN] failure to convert to markdown (defaulting to plain text): %v", err)
		converted = bluemonday.StripTagsPolicy().Sanitize(s)
	}

	return strings.ToValidUTF8(strings.TrimSpace(converted), "")
}
