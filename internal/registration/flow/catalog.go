package flow

import (
	"cmp"
	"html"
	"strings"
)

// Texts holds every language-dependent prompt, notice and label of the flow.
type Texts struct {
	ConsentPrompt  string
	ConsentInvalid string
	AgreeLabel     string
	DisagreeLabel  string
	Declined       string

	AskName     string
	NameInvalid string

	AskPhone           string
	ShareContactLabel  string
	ManualPhoneLabel   string
	PhoneMethodInvalid string
	AskPhoneManual     string
	PhoneManualInvalid string
	// PhoneAccepted opens the city question once a phone number is stored.
	PhoneAccepted string

	AskCity     string
	CityInvalid string

	AskField     string
	FieldLabels  [][]string
	FieldInvalid string

	AskExperience     string
	ExperienceLabels  [][]string
	ExperienceInvalid string

	Done      string
	Cancelled string
}

// Catalog is the static text table of the flow, keyed by language.
type Catalog struct {
	Welcome         string
	LanguagePrompt  string
	LanguageInvalid string
	LanguageLabels  []LanguageLabel
	NotStarted      string

	ByLanguage map[Language]Texts
}

// LanguageLabel binds a language to the button text that selects it.
type LanguageLabel struct {
	Language Language
	Label    string
}

// Texts returns the table for lang, falling back to the first configured language.
func (c *Catalog) Texts(lang Language) Texts {
	if t, ok := c.ByLanguage[lang]; ok {
		return t
	}
	if len(c.LanguageLabels) > 0 {
		return c.ByLanguage[c.LanguageLabels[0].Language]
	}
	return Texts{}
}

// LanguageFor resolves a pressed button label to its language.
func (c *Catalog) LanguageFor(label string) (Language, bool) {
	for _, l := range c.LanguageLabels {
		if l.Label == label {
			return l.Language, true
		}
	}
	return "", false
}

func hasLabel(rows [][]string, label string) bool {
	for _, row := range rows {
		for _, l := range row {
			if l == label {
				return true
			}
		}
	}
	return false
}

func choiceRows(rows [][]string) [][]Choice {
	out := make([][]Choice, 0, len(rows))
	for _, row := range rows {
		r := make([]Choice, 0, len(row))
		for _, l := range row {
			r = append(r, Choice{Label: l})
		}
		out = append(out, r)
	}
	return out
}

// DefaultPolicyURL is the published privacy policy and consent document.
const DefaultPolicyURL = "https://docs.google.com/document/d/1zeC9FBAj3XRQ0PwPcIRZJ5CSQnTh2AjH8pvB599RMO8/edit"

// DefaultCatalog returns the Business Sandbox copy in Ukrainian and Russian.
// policyURL is embedded into the consent prompt as an HTML link; blank means DefaultPolicyURL.
func DefaultCatalog(policyURL string) *Catalog {
	link := html.EscapeString(cmp.Or(strings.TrimSpace(policyURL), DefaultPolicyURL))

	return &Catalog{
		Welcome: "Привіт! 👋\n" +
			"Ми запускаємо Business Sandbox — безкоштовну бізнес-школу для українців в Орхусі.\n" +
			"(навчання українською або російською мовами)\n\n" +
			"Ми проводимо попередній запис на перший потік, де Ви зможете отримати практичні знання про:\n\n" +
			"• датське законодавство\n" +
			"• податки\n" +
			"• маркетинг\n" +
			"• ділову датську мову\n" +
			"та багато іншого ✨\n\n" +
			"А ще — безпечно протестувати свою бізнес-ідею ⭐️",
		LanguagePrompt:  "Будь ласка, оберіть мову спілкування:",
		LanguageInvalid: "Будь ласка, оберіть мову за допомогою кнопок.",
		LanguageLabels: []LanguageLabel{
			{Language: LangUA, Label: "🇺🇦 Українська"},
			{Language: LangRU, Label: "🇷🇺 Русский"},
		},
		NotStarted: "Щоб зареєструватися, натисніть /start.",
		ByLanguage: map[Language]Texts{
			LangUA: {
				ConsentPrompt: "Перш ніж ми почнемо 😊\n\n" +
					"Натискаючи «Погоджуюсь» та продовжуючи реєстрацію, Ви погоджуєтеся на обробку Ваших " +
					"персональних даних (ім’я, телефон, місто, сфера діяльності).\n\n" +
					"Ці дані використовуються для зв'язку з Вами щодо участі в проєкті.\n\n" +
					"Ваші дані можуть бути видалені за Вашим зверненням.\n\n" +
					`Повна версія політики та згоди: <a href="` + link + `">прочитати тут</a>.`,
				ConsentInvalid: "Будь ласка, оберіть один із варіантів: «Погоджуюсь» або «Не погоджуюсь» за допомогою кнопок.",
				AgreeLabel:     "Погоджуюсь",
				DisagreeLabel:  "Не погоджуюсь",
				Declined: "Дякуємо! Без згоди на обробку даних ми не можемо продовжити реєстрацію.\n\n" +
					"Якщо передумаєте — натисніть /start і почніть заново.",

				AskName:     "Як Вас звати? (Напишіть Ваше ім'я текстом)",
				NameInvalid: "Будь ласка, введіть Ваше ім'я текстом.",

				AskPhone: "Будь ласка, поділіться Вашим номером телефону.\n\n" +
					"Можете натиснути «📱 Поділитися контактом» або «📞 Ввести номер вручну».",
				ShareContactLabel:  "📱 Поділитися контактом",
				ManualPhoneLabel:   "📞 Ввести номер вручну",
				PhoneMethodInvalid: "Будь ласка, скористайтеся кнопками: «📱 Поділитися контактом» або «📞 Ввести номер вручну».",
				AskPhoneManual:     "Будь ласка, введіть Ваш номер у форматі +45 00 00 00 00.",
				PhoneManualInvalid: "Схоже, номер у некоректному форматі.\nПриклад: +45 00 00 00 00\nСпробуйте, будь ласка, ще раз.",

				PhoneAccepted: "Дякуємо! 🙌",

				AskCity:     "В якому місті Ви зараз проживаєте?",
				CityInvalid: "Будь ласка, напишіть назву міста текстом.",

				AskField:     "У якій сфері Ви плануєте або хотіли б працювати?",
				FieldLabels:  [][]string{{"Б'юті", "Ресторанний бізнес"}, {"Клінінг", "Інше"}},
				FieldInvalid: "Будь ласка, оберіть сферу за допомогою кнопок.",

				AskExperience:     "Чи є у Вас досвід в цій сфері?",
				ExperienceLabels:  [][]string{{"Так", "Ні"}},
				ExperienceInvalid: "Будь ласка, оберіть один із варіантів: «Так» або «Ні» за допомогою кнопок.",

				Done: "Дякуємо Вам за реєстрацію! 💛\n\n" +
					"Ми зв'яжемося з Вами у березні, перед запуском школи, або раніше — якщо строки зміняться.\n\n" +
					"У разі, якщо Ваша інформація змінилась - Ви можете пройти реєстрацію ще раз, натисніть /start.",
				Cancelled: "Реєстрацію скасовано. Якщо захочете почати знову — натисніть /start.",
			},
			LangRU: {
				ConsentPrompt: "Прежде чем мы начнём 😊\n\n" +
					"Нажимая «Согласен» и продолжая регистрацию, Вы соглашаетесь на обработку Ваших " +
					"персональных данных (имя, телефон, город, сфера деятельности).\n\n" +
					"Эти данные используются для связи с Вами по поводу участия в проекте.\n\n" +
					"Ваши данные могут быть удалены по Вашему обращению.\n\n" +
					`Полная версия политики и согласия: <a href="` + link + `">прочитать здесь</a>.`,
				ConsentInvalid: "Пожалуйста, выберите один из вариантов: «Согласен» или «Не согласен» с помощью кнопок.",
				AgreeLabel:     "Согласен",
				DisagreeLabel:  "Не согласен",
				Declined: "Спасибо! Без согласия на обработку данных мы не можем продолжить регистрацию.\n\n" +
					"Если передумаете — нажмите /start и начните заново.",

				AskName:     "Как Вас зовут? (Напишите Ваше имя текстом)",
				NameInvalid: "Пожалуйста, введите Ваше имя текстом.",

				AskPhone: "Пожалуйста, поделитесь Вашим номером телефона.\n\n" +
					"Можете нажать «📱 Поделиться контактом» или «📞 Ввести номер вручную».",
				ShareContactLabel:  "📱 Поделиться контактом",
				ManualPhoneLabel:   "📞 Ввести номер вручную",
				PhoneMethodInvalid: "Пожалуйста, используйте кнопки: «📱 Поделиться контактом» или «📞 Ввести номер вручную».",
				AskPhoneManual:     "Пожалуйста, введите Ваш номер в формате +45 00 00 00 00.",
				PhoneManualInvalid: "Похоже, номер в неверном формате.\nПример: +45 00 00 00 00\nПопробуйте, пожалуйста, ещё раз.",

				PhoneAccepted: "Спасибо! 🙌",

				AskCity:     "В каком городе Вы сейчас живёте?",
				CityInvalid: "Пожалуйста, напишите название города текстом.",

				AskField:     "В какой сфере Вы планируете или хотели бы работать?",
				FieldLabels:  [][]string{{"Бьюти", "Ресторанный бизнес"}, {"Клининг", "Другое"}},
				FieldInvalid: "Пожалуйста, выберите сферу с помощью кнопок.",

				AskExperience:     "Есть ли у Вас опыт в этой сфере?",
				ExperienceLabels:  [][]string{{"Да", "Нет"}},
				ExperienceInvalid: "Пожалуйста, выберите: «Да» или «Нет» с помощью кнопок.",

				Done: "Благодарим Вас за регистрацию! 💛\n\n" +
					"Мы свяжемся с Вами в марте, перед запуском школы, или раньше — если сроки изменятся.\n\n" +
					"Если Ваша информация изменилась, Вы можете пройти регистрацию ещё раз, нажмите /start.",
				Cancelled: "Регистрация отменена. Если захотите начать заново — нажмите /start.",
			},
		},
	}
}
