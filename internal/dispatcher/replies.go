package dispatcher

import "ipril-bot/internal/lang"

type replies struct {
	WelcomeTitle string
	WelcomeIntro string
	WelcomeOutro string

	HelpTitle     string
	HelpUsage     string
	HelpLanguages string // %s: comma separated codes

	CommandsTitle string
	Commands      map[Command]string

	SetLangUsage        string
	UnsupportedLanguage string // %q: input, %s: codes
	LanguageSet         string // %s: language
	CurrentLanguage     string // %s: language, %s: code

	RateLimited  string // %d: seconds
	ServiceError string
	StorageError string
	EmptyMessage string

	UnknownCommand string
	DidYouMean     string // %s: commands
}

var localeReplies = map[lang.Code]*replies{
	lang.English: {
		WelcomeTitle: "Welcome to Ipril - Your Grammar Assistant! 🎓",
		WelcomeIntro: "I can help you improve your writing in 6 languages:",
		WelcomeOutro: "Just send me a message and I'll help correct it!",
		HelpTitle:    "📚 Ipril Help Guide 📚",
		HelpUsage: "How to use me:\n" +
			"1. Send me any text message\n" +
			"2. I'll correct the grammar and ask a follow-up question\n" +
			"3. Continue the conversation naturally!",
		HelpLanguages: "Supported languages: %s",
		CommandsTitle: "Commands:",
		Commands: map[Command]string{
			StartCommand:           "Welcome message",
			SetLanguageCommand:     "Change language (e.g. /setlang es)",
			CurrentLanguageCommand: "Show your current language",
			HelpCommand:            "Show help message",
		},
		SetLangUsage:        "Please specify a language code. Example: /setlang en",
		UnsupportedLanguage: "Unsupported language %q. Available codes: %s",
		LanguageSet:         "Language set to %s!",
		CurrentLanguage:     "Your current language is %s (%s)",
		RateLimited:         "You've reached the rate limit. Please wait %d seconds before sending more messages.",
		ServiceError:        "Sorry, I encountered an error with the grammar service. Please try again later.",
		StorageError:        "Sorry, I couldn't save your settings. Please try again later.",
		EmptyMessage:        "Please send me a text message and I'll correct it.",
		UnknownCommand:      "I don't know this command. Try /help.",
		DidYouMean:          "Did you mean one of these: %s",
	},
	lang.Spanish: {
		WelcomeTitle: "¡Bienvenido a Ipril, tu asistente de gramática! 🎓",
		WelcomeIntro: "Puedo ayudarte a mejorar tu escritura en 6 idiomas:",
		WelcomeOutro: "¡Envíame un mensaje y te ayudaré a corregirlo!",
		HelpTitle:    "📚 Guía de ayuda de Ipril 📚",
		HelpUsage: "Cómo usarme:\n" +
			"1. Envíame cualquier mensaje de texto\n" +
			"2. Corregiré la gramática y te haré una pregunta\n" +
			"3. ¡Continúa la conversación con naturalidad!",
		HelpLanguages: "Idiomas disponibles: %s",
		CommandsTitle: "Comandos:",
		Commands: map[Command]string{
			StartCommand:           "Mensaje de bienvenida",
			SetLanguageCommand:     "Cambiar idioma (p. ej. /setlang es)",
			CurrentLanguageCommand: "Mostrar tu idioma actual",
			HelpCommand:            "Mostrar la ayuda",
		},
		SetLangUsage:        "Indica un código de idioma. Ejemplo: /setlang es",
		UnsupportedLanguage: "Idioma no admitido %q. Códigos disponibles: %s",
		LanguageSet:         "¡Idioma cambiado a %s!",
		CurrentLanguage:     "Tu idioma actual es %s (%s)",
		RateLimited:         "Has alcanzado el límite de mensajes. Espera %d segundos antes de enviar más.",
		ServiceError:        "Lo siento, hubo un error con el servicio de gramática. Inténtalo más tarde.",
		StorageError:        "Lo siento, no pude guardar tu configuración. Inténtalo más tarde.",
		EmptyMessage:        "Envíame un mensaje de texto y lo corregiré.",
		UnknownCommand:      "No conozco este comando. Prueba /help.",
		DidYouMean:          "¿Quisiste decir alguno de estos?: %s",
	},
	lang.French: {
		WelcomeTitle: "Bienvenue sur Ipril, ton assistant de grammaire ! 🎓",
		WelcomeIntro: "Je peux t'aider à améliorer ton écriture dans 6 langues :",
		WelcomeOutro: "Envoie-moi un message et je t'aiderai à le corriger !",
		HelpTitle:    "📚 Guide d'aide d'Ipril 📚",
		HelpUsage: "Comment m'utiliser :\n" +
			"1. Envoie-moi n'importe quel message\n" +
			"2. Je corrige la grammaire et je te pose une question\n" +
			"3. Continue la conversation naturellement !",
		HelpLanguages: "Langues disponibles : %s",
		CommandsTitle: "Commandes :",
		Commands: map[Command]string{
			StartCommand:           "Message de bienvenue",
			SetLanguageCommand:     "Changer de langue (ex. /setlang es)",
			CurrentLanguageCommand: "Afficher ta langue actuelle",
			HelpCommand:            "Afficher l'aide",
		},
		SetLangUsage:        "Indique un code de langue. Exemple : /setlang fr",
		UnsupportedLanguage: "Langue non prise en charge %q. Codes disponibles : %s",
		LanguageSet:         "Langue changée en %s !",
		CurrentLanguage:     "Ta langue actuelle est %s (%s)",
		RateLimited:         "Tu as atteint la limite de messages. Attends %d secondes avant d'en envoyer d'autres.",
		ServiceError:        "Désolé, le service de grammaire a rencontré une erreur. Réessaie plus tard.",
		StorageError:        "Désolé, je n'ai pas pu enregistrer tes paramètres. Réessaie plus tard.",
		EmptyMessage:        "Envoie-moi un message texte et je le corrigerai.",
		UnknownCommand:      "Je ne connais pas cette commande. Essaie /help.",
		DidYouMean:          "Voulais-tu dire : %s",
	},
	lang.German: {
		WelcomeTitle: "Willkommen bei Ipril, deinem Grammatik-Assistenten! 🎓",
		WelcomeIntro: "Ich helfe dir, in 6 Sprachen besser zu schreiben:",
		WelcomeOutro: "Schick mir einfach eine Nachricht und ich korrigiere sie!",
		HelpTitle:    "📚 Ipril Hilfe 📚",
		HelpUsage: "So funktioniert es:\n" +
			"1. Schick mir eine beliebige Textnachricht\n" +
			"2. Ich korrigiere die Grammatik und stelle eine Rückfrage\n" +
			"3. Führe das Gespräch ganz natürlich fort!",
		HelpLanguages: "Unterstützte Sprachen: %s",
		CommandsTitle: "Befehle:",
		Commands: map[Command]string{
			StartCommand:           "Begrüßung",
			SetLanguageCommand:     "Sprache ändern (z. B. /setlang es)",
			CurrentLanguageCommand: "Aktuelle Sprache anzeigen",
			HelpCommand:            "Hilfe anzeigen",
		},
		SetLangUsage:        "Bitte gib einen Sprachcode an. Beispiel: /setlang de",
		UnsupportedLanguage: "Nicht unterstützte Sprache %q. Verfügbare Codes: %s",
		LanguageSet:         "Sprache auf %s umgestellt!",
		CurrentLanguage:     "Deine aktuelle Sprache ist %s (%s)",
		RateLimited:         "Du hast das Limit erreicht. Bitte warte %d Sekunden, bevor du weitere Nachrichten schickst.",
		ServiceError:        "Entschuldigung, beim Grammatikdienst ist ein Fehler aufgetreten. Bitte versuche es später erneut.",
		StorageError:        "Entschuldigung, deine Einstellungen konnten nicht gespeichert werden. Bitte versuche es später erneut.",
		EmptyMessage:        "Schick mir eine Textnachricht und ich korrigiere sie.",
		UnknownCommand:      "Diesen Befehl kenne ich nicht. Versuche /help.",
		DidYouMean:          "Meintest du einen davon: %s",
	},
	lang.Italian: {
		WelcomeTitle: "Benvenuto in Ipril, il tuo assistente di grammatica! 🎓",
		WelcomeIntro: "Posso aiutarti a migliorare la tua scrittura in 6 lingue:",
		WelcomeOutro: "Mandami un messaggio e ti aiuterò a correggerlo!",
		HelpTitle:    "📚 Guida di Ipril 📚",
		HelpUsage: "Come usarmi:\n" +
			"1. Mandami un qualsiasi messaggio di testo\n" +
			"2. Correggerò la grammatica e ti farò una domanda\n" +
			"3. Continua la conversazione in modo naturale!",
		HelpLanguages: "Lingue supportate: %s",
		CommandsTitle: "Comandi:",
		Commands: map[Command]string{
			StartCommand:           "Messaggio di benvenuto",
			SetLanguageCommand:     "Cambia lingua (es. /setlang es)",
			CurrentLanguageCommand: "Mostra la lingua attuale",
			HelpCommand:            "Mostra l'aiuto",
		},
		SetLangUsage:        "Specifica un codice di lingua. Esempio: /setlang it",
		UnsupportedLanguage: "Lingua non supportata %q. Codici disponibili: %s",
		LanguageSet:         "Lingua impostata su %s!",
		CurrentLanguage:     "La tua lingua attuale è %s (%s)",
		RateLimited:         "Hai raggiunto il limite di messaggi. Attendi %d secondi prima di inviarne altri.",
		ServiceError:        "Scusa, si è verificato un errore con il servizio di grammatica. Riprova più tardi.",
		StorageError:        "Scusa, non sono riuscito a salvare le tue impostazioni. Riprova più tardi.",
		EmptyMessage:        "Mandami un messaggio di testo e lo correggerò.",
		UnknownCommand:      "Non conosco questo comando. Prova /help.",
		DidYouMean:          "Forse intendevi uno di questi: %s",
	},
	lang.Russian: {
		WelcomeTitle: "Добро пожаловать в Ipril, вашего помощника по грамматике! 🎓",
		WelcomeIntro: "Я помогу улучшить ваши тексты на 6 языках:",
		WelcomeOutro: "Просто отправьте мне сообщение, и я помогу его исправить!",
		HelpTitle:    "📚 Справка Ipril 📚",
		HelpUsage: "Как пользоваться:\n" +
			"1. Отправьте мне любое текстовое сообщение\n" +
			"2. Я исправлю грамматику и задам вопрос\n" +
			"3. Продолжайте разговор!",
		HelpLanguages: "Поддерживаемые языки: %s",
		CommandsTitle: "Команды:",
		Commands: map[Command]string{
			StartCommand:           "Приветствие",
			SetLanguageCommand:     "Сменить язык (например, /setlang es)",
			CurrentLanguageCommand: "Показать текущий язык",
			HelpCommand:            "Показать справку",
		},
		SetLangUsage:        "Укажите код языка. Пример: /setlang ru",
		UnsupportedLanguage: "Язык %q не поддерживается. Доступные коды: %s",
		LanguageSet:         "Язык изменён на %s!",
		CurrentLanguage:     "Ваш текущий язык: %s (%s)",
		RateLimited:         "Слишком много сообщений. Подождите %d сек. перед следующим сообщением.",
		ServiceError:        "Извините, сервис проверки грамматики не ответил. Попробуйте позже.",
		StorageError:        "Извините, не удалось сохранить настройки. Попробуйте позже.",
		EmptyMessage:        "Отправьте мне текстовое сообщение, и я его исправлю.",
		UnknownCommand:      "Не понимаю команду :( Попробуйте /help.",
		DidYouMean:          "Возможно, вы имели в виду что-то из этого: %s",
	},
}

func repliesFor(code lang.Code) *replies {
	if r, ok := localeReplies[code]; ok {
		return r
	}
	return localeReplies[lang.Default]
}
