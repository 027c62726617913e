package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// TelegramService sends operational notifications to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// OfferNotification contains new-offer data for the ops chat.
type OfferNotification struct {
	RestaurantName string
	Food           string
	Quantity       int
	Unit           string
	Price          float64
	Currency       string
}

// NotifyNewOffer announces a freshly published surplus offer.
func (s *TelegramService) NotifyNewOffer(offer OfferNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>🥗 NEW SURPLUS OFFER</b>
<b>🏪 Restaurant:</b> %s
<b>🍽 Food:</b> %s
<b>📦 Quantity:</b> %d %s
<b>💰 Price:</b> %.2f %s`,
		offer.RestaurantName,
		offer.Food,
		offer.Quantity,
		offer.Unit,
		offer.Price,
		offer.Currency,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// OrderNotification contains order data for the ops chat.
type OrderNotification struct {
	OrderNumber    string
	RestaurantName string
	CustomerName   string
	Items          []OrderItemNotification
	TotalAmount    float64
	Currency       string
	PickupTime     string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Quantity int
	Price    float64
}

// NotifyNewOrder sends notification about a new pickup order to the ops chat.
func (s *TelegramService) NotifyNewOrder(order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	var itemsList strings.Builder
	for i, item := range order.Items {
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b> - %d x %.2f %s\n",
			i+1,
			item.Name,
			item.Quantity,
			item.Price,
			order.Currency,
		))
	}

	message := fmt.Sprintf(`<b>🛒 NEW PICKUP ORDER</b>
<b>📋 Order:</b> %s
<b>🏪 Restaurant:</b> %s
<b>👤 Customer:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %.2f %s
<b>🕐 Pickup:</b> %s`,
		order.OrderNumber,
		order.RestaurantName,
		order.CustomerName,
		itemsList.String(),
		order.TotalAmount,
		order.Currency,
		order.PickupTime,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
