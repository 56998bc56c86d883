package catalog

// Default returns the built-in catalog. "flipboard" is listed twice on
// purpose: the second registration wins and keeps the first position.
func Default() *Catalog {
	return New([]SiteEntry{
		{Name: "GitHub", URL: "https://github.com/{}"},
		{Name: "Twitter", URL: "https://twitter.com/{}"},
		{Name: "Instagram", URL: "https://www.instagram.com/{}/"},
		{Name: "Facebook", URL: "https://www.facebook.com/{}/"},
		{Name: "8tracks", URL: "https://8tracks.com/{}/"},
		{Name: "Academia", URL: "https://independent.academia.edu/{}/"},
		{Name: "Allmylinks", URL: "https://allmylinks.com/{}/"},
		{Name: "Behance", URL: "https://www.behance.net/{}/"},
		{Name: "Blogspot", URL: "https://blogspot.com/{}/"},
		{Name: "Discord", URL: "https://discord.com/{}/"},
		{Name: "Disqus", URL: "https://disqus.com/{}/"},
		{Name: "Duolingo", URL: "https://www.duolingo.com/{}/"},
		{Name: "fiverr", URL: "https://www.fiverr.com/{}/"},
		{Name: "flipboard", URL: "https://flipboard.com/{}/"},
		{Name: "Github", URL: "https://www.github.com/{}/"},
		{Name: "flipboard", URL: "https://flipboard.com/{}/"},
		{Name: "Hackenproof", URL: "https://hackenproof.com/{}/"},
		{Name: "Cavalier hudsonrock", URL: "https://cavalier.hudsonrock.com/{}/"},
		{Name: "Issuu", URL: "https://issuu.com/{}/"},
		{Name: "Nitrotype", URL: "https://www.nitrotype.com/{}/"},
		{Name: "Producthunt", URL: "https://www.producthunt.com/{}/"},
		{Name: "Pypi", URL: "https://pypi.org/{}/"},
		{Name: "Reddit", URL: "https://www.reddit.com/{}/"},
		{Name: "Roblox", URL: "https://www.roblox.com/{}/"},
		{Name: "Slideshare", URL: "https://slideshare.net/{}/"},
		{Name: "Smule", URL: "https://www.smule.com/{}/"},
		{Name: "Snapchat", URL: "https://www.snapchat.com/{}/"},
		{Name: "Strava", URL: "https://www.strava.com/{}/"},
		{Name: "Tetr", URL: "https://ch.tetr.io/{}/"},
		{Name: "tldrlegal", URL: "https://tldrlegal.com/{}/"},
		{Name: "t.me", URL: "https://t.me/{}/"},
		{Name: "x.com", URL: "https://x.com/{}/"},
		{Name: "ultimate-guitar", URL: "https://ultimate-guitar.com/{}/"},
		{Name: "Wattpad", URL: "https://www.wattpad.com/{}/"},
		{Name: "Xboxgamertag", URL: "https://xboxgamertag.com/{}/"},
		{Name: "Youtube", URL: "https://www.youtube.com/{}/"},
	}...)
}
