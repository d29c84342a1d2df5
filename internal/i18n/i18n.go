// Package i18n holds the static en/kk message tables and placeholder
// substitution. Unsupported languages fall back to the configured default.
package i18n

import "strings"

// Vars are named placeholder values substituted into a message as {NAME}.
type Vars map[string]string

const (
	BotName        = "Zerde Bot"
	botDescription = "moderation of the Kazakh IT community group"
)

var translations = map[string]map[string]string{
	"en": {
		"start_message": "👋 Welcome to " + BotName + "!\n\n" +
			"I can help you with " + botDescription + "\n" +
			"Use the /help command to view available commands.",
		"help_message": "🤖 <b>Zerde Bot Instructions</b>:\n\n" +
			"This bot works automatically.\n\n" +
			"🔹 <b>For new members:</b>\n" +
			"You need to click the 'I am human' button when joining the group, " +
			"otherwise you will not be able to send messages.\n\n" +
			"🔹 <b>For administrators:</b>\n" +
			"/stats - View statistics of the group\n\n" +
			"/support - Ask for technical support",
		"echo_message":    "❌ Unknown command. Use /help to view available commands.",
		"error_occurred":  "❌ An error occurred. Please try again later.",
		"unknown_action":  "❌ Unknown action.",
		"invalid_data":    "❌ Invalid data.",
		"ping_message":    "pong",
		"welcome_verification": "👋 Welcome {MENTION}!\n\n" +
			"To ensure quality, please verify you are human.\n\n" +
			"⏳ <b>Time limit: {WINDOW} seconds</b>\n\n" +
			"(Auto-kick if timed out)",
		"welcome_verified":        "Hello {MENTION}! Welcome to Kazakh IT community!",
		"verification_successful": "✅ Verified!",
		"verify_button":           "Мен адаммын / I am human",
		"only_user_may_verify":    "Only the user who joined may verify.",
		"stats_admin_only":        "Only administrators can view /stats.",
		"stats_error":             "Failed to load stats.",
		"activity_low":            "🌱 Low",
		"activity_medium":         "🌿 Medium",
		"activity_high":           "🔥 High",
		"stats_message": "📊 <b>Chat statistics</b>\n" +
			"⏰ Since {START_DATE}\n\n" +
			"👥 <b>Joined members:</b> {TOTAL} users\n" +
			"✅ <b>Passed captchas:</b> {VERIFIED} items\n\n" +
			"📈 <b>Overall activity:</b> {ACTIVITY_LEVEL}",
		"support_message": "👨‍💻 Technical support\nFor questions: @bayashat",

		"vote_ban_initiated": "⚖️ Vote to ban {TARGET}\n\n" +
			"🚫 Ban: {BAN_COUNT}/{BAN_THRESHOLD}\n" +
			"💚 Forgive: {FORGIVE_COUNT}/{FORGIVE_THRESHOLD}",
		"vote_ban_button":            "🚫 Ban",
		"vote_forgive_button":        "💚 Forgive / Кешіру",
		"vote_recorded":              "Vote recorded.",
		"vote_already_voted":         "You have already voted.",
		"vote_ban_success":           "🚫 {TARGET} was banned by community vote.",
		"vote_forgive_success":       "💚 {TARGET} was forgiven by community vote.",
		"vote_ban_session_not_found": "Vote session not found or already resolved.",
		"vote_ban_reply_required":    "Reply to the target user's message with /voteban.",
		"vote_ban_cannot_ban_self":   "You cannot start a vote against yourself.",
		"vote_ban_cannot_ban_admin":  "Administrators and bots cannot be put to a vote.",
		"vote_ban_already_active":    "A vote against this user is already in progress.",
	},
	"kk": {
		"start_message": "👋 " + BotName + " ботқа қош келдіңіз!\n\n" +
			"Мен сізге қазақ IT қауымдастық тобын модерациялау бойынша көмектесе аламын.\n" +
			"/help командасын қолданып, қолжетімді командаларды көруге болады.",
		"help_message": "🤖 <b>Zerde Bot Нұсқаулығы</b>:\n\n" +
			"Бұл бот автоматты түрде жұмыс істейді.\n\n" +
			"🔹 <b>Жаңа мүшелер үшін:</b>\n" +
			"Топқа қосылған кезде 'Мен адаммын' түймесін басу қажет, әйтпесе хабарлама жаза алмайды.\n\n" +
			"🔹 <b>Админдер үшін:</b>\n" +
			"/stats - Топтағы статикалық ақпаратты көру\n\n" +
			"/support - Техникалық қолдау сұрау",
		"echo_message":    "❌ Белгісіз команда. Қолжетімді командаларды көру үшін /help командасын қолданыңыз.",
		"error_occurred":  "❌ Қате орын алды. Кейінірек қайталап көріңіз.",
		"unknown_action":  "❌ Белгісіз әрекет.",
		"invalid_data":    "❌ Белгісіз мәлімет.",
		"ping_message":    "pong",
		"welcome_verification": "👋 Welcome {MENTION}!\n\n" +
			"Топ сапасын сақтау үшін, бот емес екеніңізді растаңыз.\n\n" +
			"⏳ <b>Уақыт шектеулі: {WINDOW} секунд</b>\n\n" +
			"(Уақыт өтсе, автоматты түрде шығарыласыз)",
		"welcome_verified":        "{MENTION} 👋\n\nҚазақша IT қауымдастыққа қош келдіңіз! Жаңа идеялар мен жетістіктерге бірге жетейік. 🌟",
		"verification_successful": "✅ Расталды",
		"verify_button":           "Мен адаммын / I am human",
		"only_user_may_verify":    "Тек жаңадан қосылған қолданушы үшін қолжетімді.",
		"stats_admin_only":        "Тек әкімшілер үшін қолжетімді.",
		"stats_error":             "Статистиканы жүктеу кезінде қате орын алды.",
		"activity_low":            "🌱 Төмен",
		"activity_medium":         "🌿 Орташа",
		"activity_high":           "🔥 Жоғары",
		"stats_message": "📊 <b>Топ статистикасы</b>\n" +
			"⏰ {START_DATE} бастап\n\n" +
			"👥 <b>Қосылған мүшелер:</b> {TOTAL} қолданушы\n" +
			"✅ <b>Өткен капчалар:</b> {VERIFIED} дана\n\n" +
			"📈 <b>Жалпы белсенділік:</b> {ACTIVITY_LEVEL}",
		"support_message": "👨‍💻 Техникалық қолдау\nСұрақтар бойынша: @bayashat",

		"vote_ban_initiated": "⚖️ {TARGET} қолданушысын шығару дауысы\n\n" +
			"🚫 Шығару: {BAN_COUNT}/{BAN_THRESHOLD}\n" +
			"💚 Кешіру: {FORGIVE_COUNT}/{FORGIVE_THRESHOLD}",
		"vote_ban_button":            "🚫 Ban",
		"vote_forgive_button":        "💚 Forgive / Кешіру",
		"vote_recorded":              "Дауыс қабылданды.",
		"vote_already_voted":         "Сіз дауыс беріп қойғансыз.",
		"vote_ban_success":           "🚫 {TARGET} қауымдастық дауысымен топтан шығарылды.",
		"vote_forgive_success":       "💚 {TARGET} қауымдастық дауысымен кешірілді.",
		"vote_ban_session_not_found": "Дауыс сессиясы табылмады немесе аяқталған.",
		"vote_ban_reply_required":    "/voteban командасын мақсатты қолданушының хабарламасына жауап ретінде жіберіңіз.",
		"vote_ban_cannot_ban_self":   "Өзіңізге қарсы дауыс бастай алмайсыз.",
		"vote_ban_cannot_ban_admin":  "Әкімшілер мен боттарға қарсы дауыс бастауға болмайды.",
		"vote_ban_already_active":    "Бұл қолданушыға қарсы дауыс беру қазірдің өзінде жүріп жатыр.",
	},
}

// DefaultLang is used when the requested language has no table.
const DefaultLang = "kk"

// Text resolves key in lang, substituting {NAME} placeholders from vars.
// Unknown languages fall back to DefaultLang; an unknown key returns the
// key itself so a missing translation is visible, not fatal.
func Text(lang, key string, vars Vars) string {
	table, ok := translations[lang]
	if !ok {
		table = translations[DefaultLang]
	}
	text, ok := table[key]
	if !ok {
		return key
	}
	for name, value := range vars {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// Supported reports whether a translation table exists for lang.
func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}
