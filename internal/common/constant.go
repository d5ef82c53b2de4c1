package common

// StartLinkFormat builds the deep link handed to uploaders after finalize:
// bot username first, batch code second.
const StartLinkFormat = "https://t.me/%s?start=%s"
