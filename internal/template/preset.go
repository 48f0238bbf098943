package template

import (
	"context"
	"fmt"
)

// PresetTemplateTitle 每日自动批次使用的预置模板标题
const PresetTemplateTitle = "Daily Preset Prompts"

// TwitterPromptAlias 推文 prompt 的固定别名，批准会话时按它取答案
const TwitterPromptAlias = "twitter_prompt"

const twitterPromptText = `Crea un resumen humorístico de las 3 noticias más importantes de la Gazeta de hoy en un lenguaje sencillo.
Usa menos de 280 caracteres por noticia. Sé divertido y memorable, informando de forma simple y jocosa.
Dirígete al público costarricense.
Usa emojis. No digas cosas redundantes. Utiliza el contexto dado sobre la gaceta de hoy. Tal vez no sea super completo pero es todo lo que tenemos.

Ejemplo:
¡El tren eléctrico vuelve! Ahora sí, después de años, el tren vuelve a rodar por Costa Rica 🚂🎉
Se declara alerta roja por contaminación en el río Virilla. ¡Cuidado al bañarse! 🚫💦
Los chicos del fútbol ganaron el partido de hoy. ¡Qué jugada! ¡Qué partidazo! ⚽🏆

o

1: 🤩 La Municipalidad de Nandayure cede 1515 m2 para usos comunales! 🐠 Incentivando a la comunidad a involucrarse y contribuir al desarrollo y bienestar local.
2: 🤩 Fabián Dobles Rodríguez recibe el mayor galardón de Benemérito de las Letras Patrias📝 por su aporte a la literatura nacional y la obra de sus predecesores.
3: 🤬 Costa Rica incluida en el Catálogo de países sin el mejor régimen fiscal. 🤩 Pero hay un proyecto de ley para lograr la exclusión e incluye rentas provenientes del extranjero. 💪 ¡Es nuestro momento de actuar!

o
¡La Municipalidad de Nandayure donará un terreno para salón comunal! 🤩🏡
La Asamblea Legislativa otorga el Benemérito de las Letras Patrias a Fabián Dobles Rodríguez, un escritor de singulares méritos en el campo de la novela y el cuento 🎉📚
La Notaría del Estado confeccionará la escritura de traspaso del bien inmueble, para que su obra literaria siga viva 📝📃`

// presetPrompts 预置模板的 prompt 定义，顺序即执行顺序
func presetPrompts() []PromptInput {
	twitterAlias := TwitterPromptAlias
	return []PromptInput{
		{
			Name:             "Twitter Prompt",
			ShortDescription: "Create a humorous summary of the top 3 news in the Gazeta today.",
			PromptText:       twitterPromptText,
			Alias:            &twitterAlias,
		},
		{
			Name:             "Headline Prompt",
			ShortDescription: "Identify the top news headlines in today's Gaceta.",
			PromptText:       "What are the top news headlines in today's Gaceta?",
		},
		{
			Name:             "Economic Updates Prompt",
			ShortDescription: "Summarize the economic updates in today's Gaceta.",
			PromptText:       "Summarize the economic updates in today's Gaceta.",
		},
		{
			Name:             "Legal Changes Prompt",
			ShortDescription: "Highlight the legal changes mentioned in today's Gaceta.",
			PromptText:       "What legal changes are mentioned in today's Gaceta?",
		},
		{
			Name:             "Cultural Events Prompt",
			ShortDescription: "Highlight the cultural events listed in today's Gaceta.",
			PromptText:       "Highlight the cultural events listed in today's Gaceta.",
		},
		{
			Name:             "Environmental News Prompt",
			ShortDescription: "Summarize the environmental news covered in today's Gaceta.",
			PromptText:       "What environmental news is covered in today's Gaceta?",
		},
	}
}

// SeedPreset 幂等地创建预置模板，已存在时直接返回
func (s *Service) SeedPreset(ctx context.Context) (*ContentTemplate, error) {
	var existing ContentTemplate
	err := s.db.WithContext(ctx).
		Preload("Prompts").
		Where("title = ?", PresetTemplateTitle).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}

	tmpl, err := s.CreateTemplate(ctx, PresetTemplateTitle,
		"Preset prompts to be executed on a daily basis.", presetPrompts())
	if err != nil {
		return nil, fmt.Errorf("创建预置模板失败: %w", err)
	}
	return tmpl, nil
}

// PresetTemplate 查询预置模板
func (s *Service) PresetTemplate(ctx context.Context) (*ContentTemplate, error) {
	var tmpl ContentTemplate
	if err := s.db.WithContext(ctx).
		Preload("Prompts").
		Where("title = ?", PresetTemplateTitle).
		First(&tmpl).Error; err != nil {
		return nil, fmt.Errorf("查询预置模板失败: %w", err)
	}
	return &tmpl, nil
}
