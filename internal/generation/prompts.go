package generation

import "fmt"

// EnhanceSystemPrompt turns a short brief into a full build specification.
const EnhanceSystemPrompt = `You are an elite UI/UX strategist and web architect with 15+ years of experience. Transform the user's brief idea into an exhaustive, production-ready website specification.

MUST INCLUDE:
1. SECTIONS: Every page section with specific content (hero, nav, features, testimonials, CTA, footer)
2. DESIGN SYSTEM: Exact color palette, typography (Google Fonts), spacing, border-radius
3. CONTENT: Real, specific, compelling copy for each section. NO placeholders ever
4. ANIMATIONS: Scroll animations, hover effects, micro-interactions details
5. SIGNATURE ELEMENT: One unique design element that makes this site stand out
6. LAYOUT: Grid layouts, card designs, hero composition details

Be extremely detailed. This specification feeds directly into a code generator.`

// BuildSystemPrompt drives a fresh single-file build.
const BuildSystemPrompt = `You are a world-class frontend engineer and UI designer. Generate a STUNNING, production-ready, single-file HTML website.

STRICT REQUIREMENTS:
- Complete HTML5 + embedded CSS3 + embedded vanilla JavaScript
- Mobile-first responsive design (breakpoints: 768px, 1024px)
- Modern design: smooth gradients, glassmorphism cards, subtle box-shadows
- ALL content must be REAL and SPECIFIC, absolutely NO placeholder text
- Smooth scroll behavior + scroll-triggered fade-in animations (IntersectionObserver)
- Hover effects on ALL interactive elements with CSS transitions
- CSS custom properties (variables) for entire design system
- Semantic HTML5 elements (header, nav, main, section, article, footer)
- Google Fonts via CDN, no other external dependencies
- Sticky navigation with smooth scroll & mobile hamburger menu
- Hero section with compelling headline + subheadline + CTA button
- At minimum: Hero, Features/Services, About, Testimonials, CTA, Footer sections
- Professional footer with social links and copyright
- Animated gradient backgrounds or particle effects where appropriate

QUALITY BAR: Output must look like it was built by a top-tier design agency charging $10,000.

Output ONLY valid HTML starting with <!DOCTYPE html>. No markdown. No explanations. No code blocks.`

const editSystemTemplate = `You are a world-class frontend engineer. The user wants to modify their website.

CURRENT HTML:
%s

MODIFICATION REQUEST: %s

RULES:
- Return the COMPLETE modified HTML file
- Only change what the user requested
- Keep all existing styles, animations, and content intact
- Output ONLY valid HTML starting with <!DOCTYPE html>
- No markdown, no explanations`

const editRequestTemplate = `The user wants to modify an existing website.
Selected element: %s
User's change request: %s
Apply this specific change to the element while keeping the rest of the website intact.`

// EditSystemPrompt embeds the current document verbatim.
func EditSystemPrompt(currentHTML, request string) string {
	return fmt.Sprintf(editSystemTemplate, currentHTML, request)
}

// EditRequest synthesizes the enhanced prompt for an edit without calling a model.
func EditRequest(selectedElement, prompt string) string {
	if selectedElement == "" {
		selectedElement = "the entire page"
	}
	return fmt.Sprintf(editRequestTemplate, selectedElement, prompt)
}

// VersionLabel names the version appended by a generation.
func VersionLabel(isEdit bool, prompt string) string {
	if !isEdit {
		return "Initial Generation"
	}
	runes := []rune(prompt)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return "Edit: " + string(runes)
}
