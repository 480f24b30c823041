package content

import "strings"

type Language string

const (
	English Language = "English"
	Italian Language = "Italian"
	French  Language = "French"
	Spanish Language = "Spanish"
	Arabic  Language = "Arabic"
	German  Language = "German"
)

var languageMarkers = []struct {
	lang    Language
	markers []string
}{
	{Italian, []string{"italy", "italia", "pisa", "milano", "roma", "napoli"}},
	{French, []string{"france", "paris", "lyon", "marseille"}},
	{Spanish, []string{"spain", "españa", "madrid", "barcelona"}},
	{Arabic, []string{"morocco", "maroc", "casablanca", "rabat", "marrakech"}},
	{German, []string{"germany", "deutschland", "berlin", "munich", "frankfurt"}},
	{English, []string{"united kingdom", "england", "london", "uk", "usa", "united states", "america"}},
}

// DetectLanguage maps a free-form location string (city and/or country) to the
// language outreach mail should be written in. Unknown locations get English.
func DetectLanguage(location string) Language {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return English
	}
	for _, entry := range languageMarkers {
		for _, m := range entry.markers {
			if strings.Contains(loc, m) {
				return entry.lang
			}
		}
	}
	return English
}

type templateSet struct {
	subject string
	body    string
}

// Subject takes the business name; body takes sender name, services,
// and signature, in that order.
var fallbackTemplates = map[Language]templateSet{
	Italian: {
		subject: "Opportunità di Collaborazione - %s",
		body: "Gentile Sig.ra/Sig.,\n\n" +
			"Mi chiamo %s, e mi occupo di %s.\n" +
			"Sarei felice di discutere come possiamo collaborare per migliorare la vostra presenza digitale.\n\n" +
			"Possiamo sentirci questa settimana?\n\n" +
			"Cordiali saluti,\n%s",
	},
	French: {
		subject: "Opportunité de Partenariat - %s",
		body: "Madame, Monsieur,\n\n" +
			"Je m'appelle %s, et je suis spécialisé dans %s.\n" +
			"J'aimerais discuter d'une collaboration pour renforcer votre présence digitale.\n\n" +
			"Êtes-vous disponibles pour un appel cette semaine ?\n\n" +
			"Cordialement,\n%s",
	},
	Spanish: {
		subject: "Oportunidad de Colaboración - %s",
		body: "Estimado/a Sr./Sra.,\n\n" +
			"Me llamo %s, y me especializo en %s.\n" +
			"Me encantaría hablar sobre cómo podríamos colaborar para mejorar su presencia digital.\n\n" +
			"¿Podemos agendar una breve llamada esta semana?\n\n" +
			"Atentamente,\n%s",
	},
	Arabic: {
		subject: "فرصة تعاون - %s",
		body: "مرحبًا،\n\n" +
			"اسمي %s، وأنا متخصص في %s.\n" +
			"يسعدني أن أتناقش معكم حول إمكانية التعاون لتعزيز حضوركم الرقمي.\n\n" +
			"هل يمكننا التحدث هذا الأسبوع؟\n\n" +
			"مع أطيب التحيات،\n%s",
	},
	German: {
		subject: "Partnerschaftsmöglichkeit - %s",
		body: "Sehr geehrte Damen und Herren,\n\n" +
			"Mein Name ist %s, und ich bin spezialisiert auf %s.\n" +
			"Ich würde mich freuen, mit Ihnen über eine mögliche Zusammenarbeit zu sprechen.\n\n" +
			"Mit freundlichen Grüßen,\n%s",
	},
	English: {
		subject: "Partnership Opportunity - %s",
		body: "Dear Sir/Madam,\n\n" +
			"My name is %s, and I specialize in %s.\n" +
			"I'd love to explore how we can collaborate to improve your digital presence.\n\n" +
			"Would you be open to a short call this week?\n\n" +
			"Best regards,\n%s",
	},
}
