package steam

import "github.com/wsget/workshop-downloader/internal/model"

// popularGames is the embedded catalog of games with workshop support. The
// client serves browse and search requests from this table; no live Steam
// endpoint is consulted for catalog data.
var popularGames = []model.Game{
	{AppID: 730, Name: "Counter-Strike: Global Offensive"},
	{AppID: 570, Name: "Dota 2"},
	{AppID: 440, Name: "Team Fortress 2"},
	{AppID: 4000, Name: "Garry's Mod"},
	{AppID: 252490, Name: "Rust"},
	{AppID: 304930, Name: "Unturned"},
	{AppID: 431960, Name: "Wallpaper Engine"},
	{AppID: 294100, Name: "RimWorld"},
	{AppID: 255710, Name: "Cities: Skylines"},
	{AppID: 108600, Name: "Project Zomboid"},
	{AppID: 211820, Name: "Starbound"},
	{AppID: 105600, Name: "Terraria"},
	{AppID: 72850, Name: "The Elder Scrolls V: Skyrim"},
	{AppID: 489830, Name: "The Elder Scrolls V: Skyrim Special Edition"},
	{AppID: 1085660, Name: "Destiny 2"},
	{AppID: 271590, Name: "Grand Theft Auto V"},
	{AppID: 346110, Name: "ARK: Survival Evolved"},
	{AppID: 322330, Name: "Don't Starve Together"},
	{AppID: 230410, Name: "Warframe"},
	{AppID: 582010, Name: "Monster Hunter: World"},
	{AppID: 1172470, Name: "Apex Legends"},
	{AppID: 359550, Name: "Tom Clancy's Rainbow Six Siege"},
	{AppID: 292030, Name: "The Witcher 3: Wild Hunt"},
	{AppID: 1174180, Name: "Red Dead Redemption 2"},
	{AppID: 413150, Name: "Stardew Valley"},
	{AppID: 367520, Name: "Hollow Knight"},
	{AppID: 381210, Name: "Dead by Daylight"},
	{AppID: 236430, Name: "A Hat in Time"},
	{AppID: 418370, Name: "Subnautica"},
	{AppID: 774281, Name: "Subnautica: Below Zero"},
	{AppID: 892970, Name: "Valheim"},
	{AppID: 945360, Name: "Among Us"},
	{AppID: 1203220, Name: "NARAKA: BLADEPOINT"},
	{AppID: 1172620, Name: "Sea of Thieves"},
	{AppID: 1091500, Name: "Cyberpunk 2077"},
	{AppID: 1245620, Name: "ELDEN RING"},
	{AppID: 1086940, Name: "Baldur's Gate 3"},
	{AppID: 1517290, Name: "Battlefield 2042"},
	{AppID: 1599340, Name: "Call of Duty: Modern Warfare II"},
	{AppID: 1938090, Name: "Call of Duty: Modern Warfare III"},
	{AppID: 1966720, Name: "Hogwarts Legacy"},
	{AppID: 1817070, Name: "Marvel's Spider-Man Remastered"},
	{AppID: 1888930, Name: "Marvel's Spider-Man: Miles Morales"},
	{AppID: 1623730, Name: "Palworld"},
	{AppID: 1868140, Name: "DAVE THE DIVER"},
	{AppID: 1449850, Name: "Yu-Gi-Oh! Master Duel"},
	{AppID: 1593500, Name: "God of War"},
	{AppID: 1817190, Name: "Marvel's Guardians of the Galaxy"},
	{AppID: 1237970, Name: "Titanfall 2"},
	{AppID: 1174370, Name: "Phasmophobia"},
}

// modTypes lists per-game workshop content categories used by the synthetic
// item generator. Games without an entry fall back to genericModTypes.
var modTypes = map[int][]string{
	730:    {"Maps", "Weapon Skins", "Stickers", "Graffiti"},
	570:    {"Hero Items", "Couriers", "Wards", "Effects"},
	440:    {"Hats", "Weapons", "Maps", "Taunts"},
	4000:   {"Addons", "Maps", "Models", "Effects"},
	252490: {"Skins", "Plugins", "Maps"},
	431960: {"Wallpapers", "Interactive Wallpapers", "Video Wallpapers"},
	255710: {"Buildings", "Maps", "Vehicle Mods", "Props"},
}

var genericModTypes = []string{"Mod", "Map", "Skin", "Addon"}
