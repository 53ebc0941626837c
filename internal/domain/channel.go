package domain

import (
	"sort"
	"strings"
)

const (
	// GeneralChannel es el canal compartido cuando no hay contraparte.
	GeneralChannel = "general"

	privateChannelPrefix = "private-chat-"
)

// PrivateChannelName deriva el canal de una conversacion entre dos participantes.
// El resultado no depende de quien inicia la conversacion.
func PrivateChannelName(a, b string) string {
	ids := []string{strings.TrimSpace(a), strings.TrimSpace(b)}
	sort.Strings(ids)
	return privateChannelPrefix + ids[0] + "-" + ids[1]
}

// ChannelFor elige el canal privado o el general segun haya contraparte.
func ChannelFor(userID, recipientID string) string {
	if strings.TrimSpace(recipientID) == "" {
		return GeneralChannel
	}
	return PrivateChannelName(userID, recipientID)
}

// CanJoin indica si el usuario puede escuchar el canal. Los canales privados
// solo admiten a sus dos participantes; el resto son publicos.
func CanJoin(userID, channel string) bool {
	userID = strings.TrimSpace(userID)
	rest, private := strings.CutPrefix(channel, privateChannelPrefix)
	if !private {
		return true
	}
	if userID == "" {
		return false
	}
	return strings.HasPrefix(rest, userID+"-") || strings.HasSuffix(rest, "-"+userID)
}
